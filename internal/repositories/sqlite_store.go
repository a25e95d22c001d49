package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var errEmptyKey = errors.New("key is required")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteStateStore persists state rows in a single SQLite table.
type SQLiteStateStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ StateStore = (*SQLiteStateStore)(nil)

// OpenSQLiteStateStore opens (creating if needed) the database at path.
func OpenSQLiteStateStore(ctx context.Context, path string, opts ...StoreOption) (*SQLiteStateStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite state store: path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite state store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite state store: open: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite state store: migrate: %w", err)
	}

	o := applyStoreOptions(opts)
	return &SQLiteStateStore{db: db, now: o.now}, nil
}

func (s *SQLiteStateStore) Get(ctx context.Context, key string) (StateRecord, error) {
	key = strings.TrimSpace(key)
	var (
		value     []byte
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, updated_at FROM state WHERE key = ?`, key).Scan(&value, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return StateRecord{}, notFound("sqlite.get", key)
	case err != nil:
		return StateRecord{}, classifySQLite("sqlite.get", key, err)
	}
	return StateRecord{Key: key, Value: value, UpdatedAt: time.Unix(0, updatedAt).UTC()}, nil
}

func (s *SQLiteStateStore) Put(ctx context.Context, key string, value []byte) (StateRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return StateRecord{}, failure("sqlite.put", key, errEmptyKey)
	}
	if value == nil {
		value = []byte{}
	}
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO state (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now.UnixNano())
	if err != nil {
		return StateRecord{}, classifySQLite("sqlite.put", key, err)
	}
	return StateRecord{Key: key, Value: append([]byte(nil), value...), UpdatedAt: now}, nil
}

func (s *SQLiteStateStore) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE key = ?`, key); err != nil {
		return classifySQLite("sqlite.delete", key, err)
	}
	return nil
}

func (s *SQLiteStateStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("sqlite.ping", "", err)
	}
	return nil
}

func (s *SQLiteStateStore) Close() error {
	return s.db.Close()
}

func classifySQLite(op, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return unavailable(op, key, err)
	}
	return failure(op, key, err)
}
