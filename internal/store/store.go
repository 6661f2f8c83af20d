// Package store persists projects as directories under a single root, one
// compose document per project. The filesystem is the source of truth;
// the SQLite cache only remembers the last observed phase for listings.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"dockhand/internal/compose"
	"dockhand/internal/project"
)

// RunningReporter answers whether a project currently has containers up.
// The lifecycle manager implements it; deletion is refused while it reports
// true.
type RunningReporter interface {
	Running(name string) bool
}

// Store manages the project root directory.
type Store struct {
	root    string
	cache   *Cache
	running RunningReporter
	log     *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCache attaches the phase cache consulted by List.
func WithCache(cache *Cache) StoreOption {
	return func(s *Store) { s.cache = cache }
}

// WithRunningReporter gates Delete on live container state.
func WithRunningReporter(r RunningReporter) StoreOption {
	return func(s *Store) { s.running = r }
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(root string, log *slog.Logger, opts ...StoreOption) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project root: %w", err)
	}
	s := &Store{root: root, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the directory all projects live under.
func (s *Store) Root() string { return s.root }

// Dir returns the directory a project with the given name would occupy.
func (s *Store) Dir(name string) string { return filepath.Join(s.root, name) }

// Summary is one row of a project listing.
type Summary struct {
	Name      string
	Dir       string
	Services  int
	Phase     project.Phase
	UpdatedAt time.Time
}

// Create materializes a new project directory with its compose document.
// A project with no services gets the default single-service template.
func (s *Store) Create(ctx context.Context, p project.Project) (project.Project, error) {
	if err := checkName(p.Name); err != nil {
		return project.Project{}, err
	}
	if len(p.Services) == 0 {
		p.Services = project.DefaultTemplate()
	}
	p.Dir = s.Dir(p.Name)

	if _, err := os.Stat(p.Dir); err == nil {
		return project.Project{}, fmt.Errorf("%w: %s", project.ErrDuplicateName, p.Name)
	} else if !errors.Is(err, os.ErrNotExist) {
		return project.Project{}, fmt.Errorf("stat project dir: %w", err)
	}

	doc, err := compose.Render(p)
	if err != nil {
		return project.Project{}, err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return project.Project{}, fmt.Errorf("create project dir: %w", err)
	}
	if err := writeAtomic(filepath.Join(p.Dir, compose.Filename), doc); err != nil {
		// Leave no half-created project behind.
		_ = os.RemoveAll(p.Dir)
		return project.Project{}, err
	}

	s.log.Info("project created", "project", p.Name, "dir", p.Dir)
	return p.Canonical(), nil
}

// Load reads and parses one project's compose document.
func (s *Store) Load(ctx context.Context, name string) (project.Project, error) {
	if err := checkName(name); err != nil {
		return project.Project{}, err
	}
	dir := s.Dir(name)
	data, err := os.ReadFile(filepath.Join(dir, compose.Filename))
	if errors.Is(err, os.ErrNotExist) {
		return project.Project{}, fmt.Errorf("%w: %s", project.ErrNotFound, name)
	}
	if err != nil {
		return project.Project{}, fmt.Errorf("read compose document: %w", err)
	}

	p, err := compose.Parse(ctx, data, name)
	if err != nil {
		return project.Project{}, err
	}
	p.Dir = dir
	return p, nil
}

// Save rewrites a project's compose document atomically: the new content is
// fully written and synced to a temp file before it replaces the old one, so
// a crash never leaves a truncated document.
func (s *Store) Save(ctx context.Context, p project.Project) error {
	if err := checkName(p.Name); err != nil {
		return err
	}
	dir := s.Dir(p.Name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", project.ErrNotFound, p.Name)
	} else if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}

	doc, err := compose.Render(p)
	if err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(dir, compose.Filename), doc); err != nil {
		return err
	}
	s.log.Info("project saved", "project", p.Name)
	return nil
}

// Delete removes a project directory and its cached status. Projects with
// containers up are refused with project.ErrProjectRunning and no files are
// touched.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	dir := s.Dir(name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", project.ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}

	if s.running != nil && s.running.Running(name) {
		return fmt.Errorf("%w: %s", project.ErrProjectRunning, name)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove project dir: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Forget(name); err != nil {
			s.log.Warn("status cache cleanup failed", "project", name, "error", err)
		}
	}
	s.log.Info("project deleted", "project", name)
	return nil
}

// List re-enumerates the root directory on every call so projects created
// or removed behind the store's back still show up. Directories whose
// compose document is corrupt are listed with zero services rather than
// hidden: the user needs to see them to fix or delete them.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read project root: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !project.ValidName(name) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, name, compose.Filename)); err != nil {
			continue
		}

		sum := Summary{Name: name, Dir: s.Dir(name)}
		if p, err := s.Load(ctx, name); err == nil {
			sum.Services = len(p.Services)
		} else {
			s.log.Warn("project unreadable", "project", name, "error", err)
		}
		if s.cache != nil {
			if phase, at, err := s.cache.Phase(name); err == nil {
				sum.Phase = phase
				sum.UpdatedAt = at
			}
		}
		out = append(out, sum)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func checkName(name string) error {
	if !project.ValidName(name) {
		return &project.InvalidDefinitionError{Field: "name",
			Reason: fmt.Sprintf("invalid project name %q", name)}
	}
	return nil
}

// writeAtomic writes data to path via a temp file in the same directory,
// fsyncs, then renames over the destination.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	name := tmp.Name()
	tmp = nil
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
