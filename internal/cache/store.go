package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/teemow/gmailplayground/internal/cache/migrations"
	"github.com/teemow/gmailplayground/internal/gmail"
)

// DBFileName is the name of the database file inside the cache directory.
const DBFileName = "threads.db"

// Stats describes the cache contents.
type Stats struct {
	Threads     int
	OldestFetch time.Time
	NewestFetch time.Time
	Path        string
}

// Store is a SQLite-backed thread cache.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ gmail.ThreadCache = (*Store)(nil)

// NewStore opens (or creates) the cache database in dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath, now: time.Now}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the cached thread when its stored history id equals historyID.
// A miss returns nil without error.
func (s *Store) Get(ctx context.Context, threadID string, historyID uint64) (*gmailapi.Thread, error) {
	var (
		storedHistory int64
		payload       string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT history_id, payload FROM threads WHERE id = ?`, threadID,
	).Scan(&storedHistory, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread %s: %w", threadID, err)
	}
	if uint64(storedHistory) != historyID {
		return nil, nil
	}

	var thread gmailapi.Thread
	if err := json.Unmarshal([]byte(payload), &thread); err != nil {
		return nil, fmt.Errorf("unmarshalling thread %s: %w", threadID, err)
	}
	return &thread, nil
}

// Put stores or replaces a thread.
func (s *Store) Put(ctx context.Context, thread *gmailapi.Thread) error {
	if thread == nil || thread.Id == "" {
		return errors.New("thread id is required")
	}
	payload, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("marshalling thread %s: %w", thread.Id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, history_id, payload, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			history_id = excluded.history_id,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at
	`, thread.Id, int64(thread.HistoryId), string(payload), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("storing thread %s: %w", thread.Id, err)
	}
	return nil
}

// Purge deletes all cached threads and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads`)
	if err != nil {
		return 0, fmt.Errorf("purging threads: %w", err)
	}
	return res.RowsAffected()
}

// Stats counts cached threads.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Path: s.path}
	var oldest, newest sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(fetched_at), MAX(fetched_at) FROM threads`,
	).Scan(&stats.Threads, &oldest, &newest)
	if err != nil {
		return Stats{}, fmt.Errorf("counting threads: %w", err)
	}
	if oldest.Valid {
		stats.OldestFetch = time.UnixMilli(oldest.Int64)
	}
	if newest.Valid {
		stats.NewestFetch = time.UnixMilli(newest.Int64)
	}
	return stats, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}
