package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS pending_ops (
	path        TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	recorded_at INTEGER NOT NULL DEFAULT (unixepoch())
);
`

// ChangeJournal is the durable set of local mutations that have not been
// pushed yet. Last write wins per path, so a create followed by a modify
// collapses into whatever was recorded most recently.
type ChangeJournal struct {
	db *sqlx.DB
}

func NewChangeJournal(db *sqlx.DB) (*ChangeJournal, error) {
	if _, err := db.Exec(journalSchema); err != nil {
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &ChangeJournal{db: db}, nil
}

// Record stores op, replacing any pending operation for the same path.
func (j *ChangeJournal) Record(ctx context.Context, op Operation) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO pending_ops (path, kind, recorded_at) VALUES (?, ?, unixepoch())
		 ON CONFLICT(path) DO UPDATE SET kind = excluded.kind, recorded_at = excluded.recorded_at`,
		op.Path, string(op.Kind),
	)
	if err != nil {
		return fmt.Errorf("journal record %q: %w", op.Path, err)
	}
	return nil
}

// Snapshot returns all pending operations ordered by path.
func (j *ChangeJournal) Snapshot(ctx context.Context) ([]Operation, error) {
	var rows []struct {
		Path string `db:"path"`
		Kind string `db:"kind"`
	}
	if err := j.db.SelectContext(ctx, &rows, `SELECT path, kind FROM pending_ops ORDER BY path`); err != nil {
		return nil, fmt.Errorf("journal snapshot: %w", err)
	}
	ops := make([]Operation, 0, len(rows))
	for _, r := range rows {
		ops = append(ops, Operation{Path: r.Path, Kind: OpKind(r.Kind)})
	}
	return ops, nil
}

// Count returns the number of pending operations.
func (j *ChangeJournal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM pending_ops`); err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}

// Get returns the pending operation for path, if any.
func (j *ChangeJournal) Get(ctx context.Context, path string) (Operation, bool, error) {
	var row struct {
		Path string `db:"path"`
		Kind string `db:"kind"`
	}
	err := j.db.GetContext(ctx, &row, `SELECT path, kind FROM pending_ops WHERE path = ?`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Operation{}, false, nil
		}
		return Operation{}, false, fmt.Errorf("journal get %q: %w", path, err)
	}
	return Operation{Path: row.Path, Kind: OpKind(row.Kind)}, true, nil
}

// Remove drops the pending operation for path. Missing paths are a no-op.
func (j *ChangeJournal) Remove(ctx context.Context, path string) error {
	if _, err := j.db.ExecContext(ctx, `DELETE FROM pending_ops WHERE path = ?`, path); err != nil {
		return fmt.Errorf("journal remove %q: %w", path, err)
	}
	return nil
}

// Drain removes exactly the given operations in one transaction. An entry is
// only removed if both path and kind still match, so operations recorded after
// the snapshot was taken survive the drain.
func (j *ChangeJournal) Drain(ctx context.Context, ops []Operation) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal drain: %w", err)
	}
	defer tx.Rollback()

	for _, op := range ops {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_ops WHERE path = ? AND kind = ?`, op.Path, string(op.Kind),
		); err != nil {
			return fmt.Errorf("journal drain %q: %w", op.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal drain commit: %w", err)
	}
	return nil
}
