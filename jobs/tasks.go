package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPruneSessions deletes sign-in audit rows of expired sessions.
	TaskPruneSessions = "auth:prune_sessions"
)

// PruneSessionsPayload tunes a prune run. Grace keeps rows that expired less
// than Grace ago.
type PruneSessionsPayload struct {
	Grace time.Duration `json:"grace"`
}

// NewPruneSessionsTask constructs the prune task.
func NewPruneSessionsTask(grace time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(PruneSessionsPayload{Grace: grace})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPruneSessions, data, asynq.Queue(QueueDefault), asynq.Unique(time.Hour)), nil
}
