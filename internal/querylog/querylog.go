// Package querylog records queries the classifier rejected so the lexicon can
// be reviewed and extended later.
package querylog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bgdnvk/topicguard/internal/relevance"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when an entry id does not exist.
var ErrNotFound = errors.New("query log entry not found")

// Entry is one rejected query.
type Entry struct {
	ID         int64              `json:"id"`
	Query      string             `json:"query"`
	Confidence float64            `json:"confidence"`
	Category   relevance.Category `json:"primary_category"`
	Reason     string             `json:"reason"`
	OffTopic   bool               `json:"off_topic"`
	At         time.Time          `json:"at"`
	Processed  bool               `json:"processed"`
}

// Store is a SQLite-backed rejected-query log.
type Store struct {
	db *sql.DB
}

// Open opens the log at path, creating the file and schema when missing.
// A leading "~/" is resolved against the home directory.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open query log: empty path")
	}
	if strings.HasPrefix(dbPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[2:])
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create query log dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e and returns its id. A zero At is set to the current time.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rejected_queries (query, confidence, primary_category, reason, off_topic, created_at, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Query, e.Confidence, e.Category.String(), e.Reason, e.OffTopic, e.At.UnixMilli(), e.Processed)
	if err != nil {
		return 0, fmt.Errorf("record rejected query: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record rejected query: %w", err)
	}
	return id, nil
}

// RecordRejected logs a classifier result for query.
func (s *Store) RecordRejected(ctx context.Context, query string, result relevance.Result) error {
	_, err := s.Record(ctx, Entry{
		Query:      query,
		Confidence: result.Confidence,
		Category:   result.PrimaryCategory,
		Reason:     result.Reason,
		OffTopic:   result.OffTopic,
	})
	return err
}

// ListOptions filters List.
type ListOptions struct {
	Limit            int
	IncludeProcessed bool
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	query := `SELECT id, query, confidence, primary_category, reason, off_topic, created_at, processed
		FROM rejected_queries`
	if !opts.IncludeProcessed {
		query += ` WHERE processed = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	args := []any{}
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rejected queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			category string
			millis   int64
		)
		if err := rows.Scan(&e.ID, &e.Query, &e.Confidence, &category, &e.Reason, &e.OffTopic, &millis, &e.Processed); err != nil {
			return nil, fmt.Errorf("scan rejected query: %w", err)
		}
		e.Category, err = relevance.ParseCategory(category)
		if err != nil {
			return nil, fmt.Errorf("scan rejected query %d: %w", e.ID, err)
		}
		e.At = time.UnixMilli(millis)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejected queries: %w", err)
	}
	return entries, nil
}

// MarkProcessed flags an entry as reviewed.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rejected_queries SET processed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark query %d processed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark query %d processed: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// applyMigrations runs every embedded migration not yet recorded in
// _migrations, each in its own transaction.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM _migrations")
	if err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migrations: %w", err)
	}

	for _, filename := range files {
		var version int
		if n, _ := fmt.Sscanf(filename, "%03d_", &version); n != 1 {
			return fmt.Errorf("parse migration version from %s: invalid format", filename)
		}
		if applied[version] {
			continue
		}
		content, err := migrations.ReadFile(path.Join("migrations", filename))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", filename, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", filename, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO _migrations (version, name) VALUES (?, ?)", version, filename); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", filename, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", filename, err)
		}
	}
	return nil
}
