package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS drive_index (
	id   TEXT PRIMARY KEY,
	path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drive_index_path ON drive_index(path);
`

// DriveIndex maps remote object ids to vault-relative paths. The id->path
// direction is authoritative; path lookups are derived from it.
type DriveIndex struct {
	db *sqlx.DB
}

func NewDriveIndex(db *sqlx.DB) (*DriveIndex, error) {
	if _, err := db.Exec(indexSchema); err != nil {
		return nil, fmt.Errorf("index schema: %w", err)
	}
	return &DriveIndex{db: db}, nil
}

// Record binds id to path, replacing any previous path for that id.
func (x *DriveIndex) Record(ctx context.Context, id, path string) error {
	if id == "" {
		return fmt.Errorf("index record %q: empty object id", path)
	}
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO drive_index (id, path) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET path = excluded.path`,
		id, path,
	)
	if err != nil {
		return fmt.Errorf("index record %q: %w", path, err)
	}
	return nil
}

// Resolve returns the object id bound to path.
func (x *DriveIndex) Resolve(ctx context.Context, path string) (string, bool, error) {
	var id string
	err := x.db.GetContext(ctx, &id, `SELECT id FROM drive_index WHERE path = ?`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("index resolve %q: %w", path, err)
	}
	return id, true, nil
}

// PathFor returns the path bound to id.
func (x *DriveIndex) PathFor(ctx context.Context, id string) (string, bool, error) {
	var path string
	err := x.db.GetContext(ctx, &path, `SELECT path FROM drive_index WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("index path for %q: %w", id, err)
	}
	return path, true, nil
}

// Forget drops the binding for path. Unknown paths are a no-op.
func (x *DriveIndex) Forget(ctx context.Context, path string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM drive_index WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index forget %q: %w", path, err)
	}
	return nil
}

// ForgetID drops the binding for id. Unknown ids are a no-op.
func (x *DriveIndex) ForgetID(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM drive_index WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index forget id %q: %w", id, err)
	}
	return nil
}

// Entries returns the full id->path map.
func (x *DriveIndex) Entries(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		ID   string `db:"id"`
		Path string `db:"path"`
	}
	if err := x.db.SelectContext(ctx, &rows, `SELECT id, path FROM drive_index`); err != nil {
		return nil, fmt.Errorf("index entries: %w", err)
	}
	entries := make(map[string]string, len(rows))
	for _, r := range rows {
		entries[r.ID] = r.Path
	}
	return entries, nil
}

// Replace atomically swaps the whole index for entries. Used when adopting a
// remote snapshot.
func (x *DriveIndex) Replace(ctx context.Context, entries map[string]string) error {
	tx, err := x.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drive_index`); err != nil {
		return fmt.Errorf("index replace: %w", err)
	}
	for id, path := range entries {
		if _, err := tx.ExecContext(ctx, `INSERT INTO drive_index (id, path) VALUES (?, ?)`, id, path); err != nil {
			return fmt.Errorf("index replace %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index replace commit: %w", err)
	}
	return nil
}
