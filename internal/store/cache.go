package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dockhand/internal/project"
)

// Cache persists the last classified phase per project in SQLite so
// listings can show status without an engine round trip. Cached phases are
// advisory: stale entries are corrected on the next refresh and never gate
// any operation.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the status cache database at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS project_status (
		name       TEXT PRIMARY KEY,
		phase      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create status table: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// PutPhase records the phase observed for a project.
func (c *Cache) PutPhase(name string, phase project.Phase, at time.Time) error {
	_, err := c.db.Exec(`INSERT INTO project_status (name, phase, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET phase = excluded.phase, updated_at = excluded.updated_at`,
		name, phase.String(), at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put phase: %w", err)
	}
	return nil
}

// Phase returns the cached phase for a project. Projects never recorded
// report project.PhaseUnknown with a zero timestamp.
func (c *Cache) Phase(name string) (project.Phase, time.Time, error) {
	var phaseStr, atStr string
	err := c.db.QueryRow(`SELECT phase, updated_at FROM project_status WHERE name = ?`, name).
		Scan(&phaseStr, &atStr)
	if errors.Is(err, sql.ErrNoRows) {
		return project.PhaseUnknown, time.Time{}, nil
	}
	if err != nil {
		return project.PhaseUnknown, time.Time{}, fmt.Errorf("get phase: %w", err)
	}

	phase := project.ParsePhase(phaseStr)
	at, err := time.Parse(time.RFC3339Nano, atStr)
	if err != nil {
		at = time.Time{}
	}
	return phase, at, nil
}

// Forget drops the cached entry for a deleted project.
func (c *Cache) Forget(name string) error {
	if _, err := c.db.Exec(`DELETE FROM project_status WHERE name = ?`, name); err != nil {
		return fmt.Errorf("forget phase: %w", err)
	}
	return nil
}
