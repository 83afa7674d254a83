package benchmark

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Open connects to Postgres through the pgx driver, verifies the connection,
// and returns the wrapped handle NewRepository consumes.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, swarmerrors.FailedTo("connect to benchmark database", err)
	}
	return db, nil
}

// Repository persists SessionRecords to Postgres, grounded on the teacher's
// repository pattern (wrap *sql.DB/*sqlx.DB, log with a structured logger,
// translate driver errors at the boundary).
type Repository struct {
	db  *sqlx.DB
	log logr.Logger
}

// NewRepository wraps an already-opened *sqlx.DB (opened with the
// "pgx" driver name registered by github.com/jackc/pgx/v5/stdlib).
func NewRepository(db *sqlx.DB, log logr.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// Create inserts one SessionRecord and returns it with ID/CreatedAt populated.
func (r *Repository) Create(ctx context.Context, rec SessionRecord) (SessionRecord, error) {
	const q = `
		INSERT INTO benchmark_sessions
			(run_label, issue_id, resolved, iterations, highest_tier, wall_clock_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	row := r.db.QueryRowxContext(ctx, q,
		rec.RunLabel, rec.IssueID, rec.Resolved, rec.Iterations, rec.HighestTier, rec.WallClock.Milliseconds())
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return SessionRecord{}, swarmerrors.FailedTo("insert benchmark session", err)
	}
	return rec, nil
}

// ListByRunLabel returns every SessionRecord recorded for one named run,
// oldest first.
func (r *Repository) ListByRunLabel(ctx context.Context, runLabel string) ([]SessionRecord, error) {
	const q = `
		SELECT id, run_label, issue_id, resolved, iterations, highest_tier, wall_clock_ms, created_at
		FROM benchmark_sessions
		WHERE run_label = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryxContext(ctx, q, runLabel)
	if err != nil {
		return nil, swarmerrors.FailedTo("list benchmark sessions for run "+runLabel, err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var wallClockMS int64
		if err := rows.Scan(&rec.ID, &rec.RunLabel, &rec.IssueID, &rec.Resolved,
			&rec.Iterations, &rec.HighestTier, &wallClockMS, &rec.CreatedAt); err != nil {
			return nil, swarmerrors.FailedTo("scan benchmark session row", err)
		}
		rec.WallClock = time.Duration(wallClockMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, swarmerrors.FailedTo("iterate benchmark session rows", err)
	}
	return out, nil
}

// DB exposes the underlying *sql.DB for callers (e.g. migrations) that need
// the plain database/sql handle.
func (r *Repository) DB() *sql.DB {
	return r.db.DB
}
