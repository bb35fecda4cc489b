package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tracker/internal/manager"
)

// DefaultKey names the snapshot row when none is configured.
const DefaultKey = "tasks"

// Store keeps snapshots in a SQLite key/value table, one row per key.
type Store struct {
	db      *sql.DB
	key     string
	timeout time.Duration
	logger  *slog.Logger
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath, key string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, key: key, timeout: 5 * time.Second, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
            key TEXT PRIMARY KEY,
            body TEXT NOT NULL,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save replaces the snapshot stored under the configured key.
func (s *Store) Save(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(key, body) VALUES(?, ?)
        ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`, s.key, string(data))
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w: %w", s.key, manager.ErrIO, err)
	}
	return nil
}

// Load returns the stored snapshot, or nil when the key was never saved.
func (s *Store) Load() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE key = ?`, s.key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("no snapshot stored", slog.String("key", s.key))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w: %w", s.key, manager.ErrIO, err)
	}
	return []byte(body), nil
}

// UpdatedAt reports when the snapshot was last written.
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM snapshots WHERE key = ?`, s.key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("snapshot %q: %w", s.key, manager.ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("snapshot time: %w", err)
	}
	return ts, nil
}

// String names the backend in logs.
func (s *Store) String() string {
	return "sqlite:" + s.key
}
