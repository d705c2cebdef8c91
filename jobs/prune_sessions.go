package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/portal/internal/jobs"
)

// SessionPruner removes audit rows that expired before now.
type SessionPruner interface {
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// PruneSessionsJob deletes sign-in audit rows whose session has expired.
type PruneSessionsJob struct {
	Pruner  SessionPruner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewPruneSessionsJob initialises the prune handler.
func NewPruneSessionsJob(pruner SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *PruneSessionsJob {
	return &PruneSessionsJob{
		Pruner:  pruner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one prune run.
func (j *PruneSessionsJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Pruner == nil {
		return errors.New("prune sessions: handler not configured")
	}
	var payload PruneSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Grace < 0 {
		payload.Grace = 0
	}

	start := j.now()
	tracker := j.Metrics.Track(TaskPruneSessions)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Duration("grace", payload.Grace))
	removed, err := j.Pruner.PruneExpired(ctx, start.Add(-payload.Grace))
	if err != nil {
		logger.Error("prune sessions failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddRemoved(TaskPruneSessions, removed)
	logger.Info("pruned expired sessions",
		slog.Int64("removed", removed),
		slog.Duration("duration", j.now().Sub(start)),
	)
	return nil
}

func (j *PruneSessionsJob) now() time.Time {
	if j.clock == nil {
		return time.Now().UTC()
	}
	return j.clock()
}

func (j *PruneSessionsJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger
}
