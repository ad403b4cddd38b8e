// Package analytics persists per-post view counts in a SQLite database.
package analytics

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/quillhost/quill/internal/errors"
)

// ViewCounter is the increment/read contract the content service and HTTP
// layer consume.
type ViewCounter interface {
	Increment(ctx context.Context, slug string) (int64, error)
	Get(ctx context.Context, slug string) (int64, error)
	All(ctx context.Context) (map[string]int64, error)
}

// SQLiteStore implements ViewCounter over a single-table SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS views (
	slug  TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 0
);
`

// OpenSQLite opens (creating if needed) the view-count database. The caller
// owns the returned store's lifecycle and must Close it on shutdown.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.NewIOError("ERR_ANALYTICS_DIR", "cannot create analytics directory", err).WithFile(dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewIOError("ERR_ANALYTICS_OPEN", "cannot open view-count database", err).WithFile(path)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIOError("ERR_ANALYTICS_SCHEMA", "cannot initialize view-count schema", err).WithFile(path)
	}

	return &SQLiteStore{db: db}, nil
}

// Increment bumps and returns the count for a slug.
func (s *SQLiteStore) Increment(ctx context.Context, slug string) (int64, error) {
	const query = `
INSERT INTO views (slug, count) VALUES (?, 1)
ON CONFLICT(slug) DO UPDATE SET count = count + 1
RETURNING count;
`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, slug).Scan(&count); err != nil {
		return 0, errors.NewIOError("ERR_ANALYTICS_WRITE", "increment failed", err).WithSlug(slug)
	}

	return count, nil
}

// Get returns the count for a slug; slugs never viewed read as zero.
func (s *SQLiteStore) Get(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM views WHERE slug = ?`, slug).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewIOError("ERR_ANALYTICS_READ", "read failed", err).WithSlug(slug)
	}

	return count, nil
}

// All returns every stored slug→count pair.
func (s *SQLiteStore) All(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, count FROM views`)
	if err != nil {
		return nil, errors.NewIOError("ERR_ANALYTICS_READ", "scan failed", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var slug string
		var count int64
		if err := rows.Scan(&slug, &count); err != nil {
			return nil, errors.NewIOError("ERR_ANALYTICS_READ", "row scan failed", err)
		}
		counts[slug] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewIOError("ERR_ANALYTICS_READ", "row iteration failed", err)
	}

	return counts, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
