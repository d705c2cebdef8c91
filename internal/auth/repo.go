package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/portal/internal/platform/db"
)

// Repository defines persistence operations for the sign-in audit trail.
type Repository interface {
	CreateSession(ctx context.Context, rec SignIn) error
	DeleteSession(ctx context.Context, id string) error
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateSession records a sign-in. The superseded record and a record already
// stored under the same ID are replaced in the same transaction.
func (r *PGRepository) CreateSession(ctx context.Context, rec SignIn) error {
	const query = `INSERT INTO portal_sessions (id, user_id, email, role, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, email = EXCLUDED.email, role = EXCLUDED.role,
	created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at, ip = EXCLUDED.ip, ua = EXCLUDED.ua`
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if rec.Replaces != "" && rec.Replaces != rec.SessionID {
			if _, err := tx.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, rec.Replaces); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, query,
			rec.SessionID,
			rec.UserID,
			rec.Email,
			rec.Role,
			pgtype.Timestamptz{Time: rec.CreatedAt.UTC(), Valid: true},
			pgtype.Timestamptz{Time: rec.ExpiresAt.UTC(), Valid: true},
			pgtype.Text{String: rec.IP, Valid: rec.IP != ""},
			pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""},
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// PruneExpired deletes records whose session lifetime ended before now.
func (r *PGRepository) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at < $1`, pgtype.Timestamptz{Time: now.UTC(), Valid: true})
	if err != nil {
		return 0, fmt.Errorf("auth: prune sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
