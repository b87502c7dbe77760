package embedding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const embeddingsSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	key        TEXT PRIMARY KEY,
	dims       INTEGER NOT NULL,
	vector     BLOB NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the cache database at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open embedding cache: empty path")
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create embedding cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	// Single writer avoids SQLITE_BUSY under concurrent Put calls.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, embeddingsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create embeddings table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding: %w", err)
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (key, dims, vector, created_at) VALUES (?, ?, ?, ?)`,
		key, len(vec), encodeVector(vec), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
