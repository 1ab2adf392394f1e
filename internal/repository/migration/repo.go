package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecspace/internal/db/sqlite"
	"github.com/kailas-cloud/vecspace/internal/domain"
	dommig "github.com/kailas-cloud/vecspace/internal/domain/migration"
)

const taskColumns = `id, source_collection, target_collection, status, progress, total, moved,
	error_message, created_at, started_at, completed_at`

// store is the consumer interface for the relational store (ISP).
type store interface {
	sqlite.Querier
	WithTx(ctx context.Context, fn func(q sqlite.Querier) error) error
}

// Repo implements usecase/migration.Repository over SQLite.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a migration task repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Create inserts a pending task. A second active task for the same source
// fails with domain.ErrConflict.
func (r *Repo) Create(ctx context.Context, t dommig.Task) error {
	st := t.State()
	_, err := r.store.ExecContext(ctx,
		`INSERT INTO migration_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Source, st.Target, string(st.Status), st.Progress, st.Total, st.Moved,
		nullString(st.ErrorMessage), st.CreatedAt, nullInt(st.StartedAt), nullInt(st.CompletedAt))
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return fmt.Errorf("source %q already has an active migration: %w", st.Source, domain.ErrConflict)
		}
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	return nil
}

// Get loads a task by id.
func (r *Repo) Get(ctx context.Context, id string) (dommig.Task, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM migration_tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return dommig.Task{}, fmt.Errorf("migration task %q: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return dommig.Task{}, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return t, nil
}

// List returns up to limit tasks, newest first.
func (r *Repo) List(ctx context.Context, limit int) ([]dommig.Task, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM migration_tasks ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return collectTasks(rows)
}

// ListActive returns pending and running tasks, oldest first.
func (r *Repo) ListActive(ctx context.Context) ([]dommig.Task, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM migration_tasks WHERE status IN ('pending', 'running')
		 ORDER BY created_at, rowid`)
	if err != nil {
		return nil, sqlite.Wrap(sqlite.OpQuery, err)
	}
	return collectTasks(rows)
}

// ClaimNext moves the oldest pending task to running and snapshots the source
// mapping count as its total. It returns false when no task is pending. The
// status guard in the UPDATE keeps two workers from claiming the same task.
func (r *Repo) ClaimNext(ctx context.Context) (dommig.Task, bool, error) {
	var (
		claimed dommig.Task
		ok      bool
	)
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		row := q.QueryRowContext(ctx,
			`SELECT `+taskColumns+` FROM migration_tasks WHERE status = 'pending'
			 ORDER BY created_at, rowid LIMIT 1`)
		t, err := scanTask(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return sqlite.Wrap(sqlite.OpQuery, err)
		}

		var total int64
		err = q.QueryRowContext(ctx,
			`SELECT count(*) FROM vector_mappings WHERE collection_name = ?`, t.Source()).Scan(&total)
		if err != nil {
			return sqlite.Wrap(sqlite.OpQuery, err)
		}
		now := r.now().UnixMilli()
		res, err := q.ExecContext(ctx,
			`UPDATE migration_tasks SET status = 'running', total = ?, started_at = ?
			 WHERE id = ? AND status = 'pending'`, total, now, t.ID())
		if err != nil {
			return sqlite.Wrap(sqlite.OpExec, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		st := t.State()
		st.Status = dommig.StatusRunning
		st.Total = total
		st.StartedAt = now
		claimed, ok = dommig.Reconstruct(st), true
		return nil
	})
	if err != nil {
		return dommig.Task{}, false, err
	}
	return claimed, ok, nil
}

// UpdateProgress records moved rows for a running task. Progress never decreases.
func (r *Repo) UpdateProgress(ctx context.Context, id string, moved int64, progress int) error {
	_, err := r.store.ExecContext(ctx,
		`UPDATE migration_tasks SET moved = ?, progress = max(progress, ?)
		 WHERE id = ? AND status = 'running'`, moved, progress, id)
	return sqlite.Wrap(sqlite.OpExec, err)
}

// Complete marks a running task completed at 100%.
func (r *Repo) Complete(ctx context.Context, id string, moved int64) error {
	return r.finish(ctx, id, dommig.StatusCompleted, moved, "")
}

// Fail marks an active task failed with msg.
func (r *Repo) Fail(ctx context.Context, id string, moved int64, msg string) error {
	if msg == "" {
		msg = "unknown error"
	}
	return r.finish(ctx, id, dommig.StatusFailed, moved, msg)
}

func (r *Repo) finish(ctx context.Context, id string, status dommig.Status, moved int64, msg string) error {
	progress := `progress`
	if status == dommig.StatusCompleted {
		progress = `100`
	}
	res, err := r.store.ExecContext(ctx,
		`UPDATE migration_tasks SET status = ?, moved = ?, progress = `+progress+`,
		 error_message = ?, completed_at = ?
		 WHERE id = ? AND status IN ('pending', 'running')`,
		string(status), moved, nullString(msg), r.now().UnixMilli(), id)
	if err != nil {
		return sqlite.Wrap(sqlite.OpExec, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("migration task %q is not active: %w", id, domain.ErrNotFound)
	}
	return nil
}

// FailRunning fails every running task with msg and returns their ids.
// Used at startup, when no worker can still own a running task.
func (r *Repo) FailRunning(ctx context.Context, msg string) ([]string, error) {
	var ids []string
	err := r.store.WithTx(ctx, func(q sqlite.Querier) error {
		rows, err := q.QueryContext(ctx, `SELECT id FROM migration_tasks WHERE status = 'running'`)
		if err != nil {
			return sqlite.Wrap(sqlite.OpQuery, err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return sqlite.Wrap(sqlite.OpScan, err)
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return sqlite.Wrap(sqlite.OpScan, err)
		}
		if err := rows.Err(); err != nil {
			return sqlite.Wrap(sqlite.OpScan, err)
		}

		_, err = q.ExecContext(ctx,
			`UPDATE migration_tasks SET status = 'failed', error_message = ?, completed_at = ?
			 WHERE status = 'running'`, msg, r.now().UnixMilli())
		return sqlite.Wrap(sqlite.OpExec, err)
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func scanTask(row interface{ Scan(dest ...any) error }) (dommig.Task, error) {
	var (
		st                     dommig.State
		status                 string
		errMsg                 sql.NullString
		startedAt, completedAt sql.NullInt64
	)
	err := row.Scan(&st.ID, &st.Source, &st.Target, &status, &st.Progress, &st.Total, &st.Moved,
		&errMsg, &st.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return dommig.Task{}, err
	}
	st.Status = dommig.Status(status)
	st.ErrorMessage = errMsg.String
	st.StartedAt = startedAt.Int64
	st.CompletedAt = completedAt.Int64
	return dommig.Reconstruct(st), nil
}

func collectTasks(rows *sql.Rows) ([]dommig.Task, error) {
	defer rows.Close()
	var out []dommig.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, sqlite.Wrap(sqlite.OpScan, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Wrap(sqlite.OpScan, err)
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
