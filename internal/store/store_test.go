package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dockhand/internal/compose"
	"dockhand/internal/project"
)

type stubRunning struct{ names map[string]bool }

func (s stubRunning) Running(name string) bool { return s.names[name] }

func discardStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func sampleProject(name string) project.Project {
	return project.Project{
		Name: name,
		Services: []project.Service{
			{Name: "web", Image: "nginx:1.27",
				Ports: []project.PortMapping{{HostPort: 8080, ContainerPort: 80}}},
		},
	}
}

func TestStoreCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("writes the compose document", func(t *testing.T) {
		s := discardStore(t)
		p, err := s.Create(ctx, sampleProject("shop"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if p.Dir != s.Dir("shop") {
			t.Fatalf("Create() dir = %q, want %q", p.Dir, s.Dir("shop"))
		}
		if _, err := os.Stat(filepath.Join(p.Dir, compose.Filename)); err != nil {
			t.Fatalf("compose document missing: %v", err)
		}
	})

	t.Run("empty project gets the default template", func(t *testing.T) {
		s := discardStore(t)
		p, err := s.Create(ctx, project.Project{Name: "fresh"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(p.Services) != 1 || p.Services[0].Image != "nginx:latest" {
			t.Fatalf("Create() services = %+v, want default nginx", p.Services)
		}
		loaded, err := s.Load(ctx, "fresh")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !project.Equal(loaded, p) {
			t.Fatalf("Load() = %+v, want %+v", loaded, p)
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		s := discardStore(t)
		if _, err := s.Create(ctx, sampleProject("shop")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		_, err := s.Create(ctx, sampleProject("shop"))
		if !errors.Is(err, project.ErrDuplicateName) {
			t.Fatalf("Create() error = %v, want ErrDuplicateName", err)
		}
	})

	t.Run("invalid name rejected", func(t *testing.T) {
		s := discardStore(t)
		for _, name := range []string{"", "../escape", "a/b", "-leading"} {
			_, err := s.Create(ctx, sampleProject(name))
			var invalid *project.InvalidDefinitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("Create(%q) error = %v, want InvalidDefinitionError", name, err)
			}
		}
	})
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a created project", func(t *testing.T) {
		s := discardStore(t)
		created, err := s.Create(ctx, sampleProject("shop"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		loaded, err := s.Load(ctx, "shop")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !project.Equal(loaded, created) {
			t.Fatalf("Load() = %+v, want %+v", loaded, created)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		s := discardStore(t)
		if _, err := s.Load(ctx, "ghost"); !errors.Is(err, project.ErrNotFound) {
			t.Fatalf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("corrupt document", func(t *testing.T) {
		s := discardStore(t)
		dir := s.Dir("broken")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		garbage := []byte("services: [unclosed\n")
		if err := os.WriteFile(filepath.Join(dir, compose.Filename), garbage, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		if _, err := s.Load(ctx, "broken"); !errors.Is(err, project.ErrCorruptDefinition) {
			t.Fatalf("Load() error = %v, want ErrCorruptDefinition", err)
		}
	})
}

func TestStoreSave(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the document atomically", func(t *testing.T) {
		s := discardStore(t)
		p, err := s.Create(ctx, sampleProject("shop"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		p.Services = append(p.Services, project.Service{Name: "db", Image: "postgres:16"})
		if err := s.Save(ctx, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		loaded, err := s.Load(ctx, "shop")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(loaded.Services) != 2 {
			t.Fatalf("Load() services = %d, want 2", len(loaded.Services))
		}

		// No temp file debris.
		entries, err := os.ReadDir(s.Dir("shop"))
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("project dir entries = %d, want 1", len(entries))
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		s := discardStore(t)
		if err := s.Save(ctx, sampleProject("ghost")); !errors.Is(err, project.ErrNotFound) {
			t.Fatalf("Save() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid definition leaves the old document intact", func(t *testing.T) {
		s := discardStore(t)
		p, err := s.Create(ctx, sampleProject("shop"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		bad := p
		bad.Services = []project.Service{{Name: "web"}} // image missing
		if err := s.Save(ctx, bad); err == nil {
			t.Fatal("Save() accepted invalid definition")
		}

		loaded, err := s.Load(ctx, "shop")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !project.Equal(loaded, p) {
			t.Fatalf("document changed after rejected save")
		}
	})
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the directory", func(t *testing.T) {
		s := discardStore(t)
		if _, err := s.Create(ctx, sampleProject("shop")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := s.Delete(ctx, "shop"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := os.Stat(s.Dir("shop")); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("project dir still exists: %v", err)
		}
	})

	t.Run("running project refused with files intact", func(t *testing.T) {
		s := discardStore(t, WithRunningReporter(stubRunning{names: map[string]bool{"shop": true}}))
		if _, err := s.Create(ctx, sampleProject("shop")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := s.Delete(ctx, "shop"); !errors.Is(err, project.ErrProjectRunning) {
			t.Fatalf("Delete() error = %v, want ErrProjectRunning", err)
		}
		if _, err := os.Stat(filepath.Join(s.Dir("shop"), compose.Filename)); err != nil {
			t.Fatalf("compose document gone after refused delete: %v", err)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		s := discardStore(t)
		if err := s.Delete(ctx, "ghost"); !errors.Is(err, project.ErrNotFound) {
			t.Fatalf("Delete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStoreList(t *testing.T) {
	ctx := context.Background()

	t.Run("enumerates the root each call", func(t *testing.T) {
		s := discardStore(t)
		for _, name := range []string{"beta", "alpha"} {
			if _, err := s.Create(ctx, sampleProject(name)); err != nil {
				t.Fatalf("Create(%s) error = %v", name, err)
			}
		}

		sums, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sums) != 2 || sums[0].Name != "alpha" || sums[1].Name != "beta" {
			t.Fatalf("List() = %+v, want alpha then beta", sums)
		}

		// A directory dropped in from outside still shows up.
		outside := filepath.Join(s.Root(), "gamma")
		if err := os.MkdirAll(outside, 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		doc, err := compose.Render(sampleProject("gamma"))
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if err := os.WriteFile(filepath.Join(outside, compose.Filename), doc, 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}

		sums, err = s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sums) != 3 || sums[2].Name != "gamma" {
			t.Fatalf("List() = %+v, want gamma included", sums)
		}
	})

	t.Run("directories without a document are skipped", func(t *testing.T) {
		s := discardStore(t)
		if err := os.MkdirAll(filepath.Join(s.Root(), "stray"), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		sums, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sums) != 0 {
			t.Fatalf("List() = %+v, want empty", sums)
		}
	})

	t.Run("cached phase is reported", func(t *testing.T) {
		cache, err := OpenCache(filepath.Join(t.TempDir(), "status.db"))
		if err != nil {
			t.Fatalf("OpenCache() error = %v", err)
		}
		defer cache.Close()

		s := discardStore(t, WithCache(cache))
		if _, err := s.Create(ctx, sampleProject("shop")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		if err := cache.PutPhase("shop", project.PhaseRunning, at); err != nil {
			t.Fatalf("PutPhase() error = %v", err)
		}

		sums, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sums) != 1 || sums[0].Phase != project.PhaseRunning {
			t.Fatalf("List() = %+v, want running phase", sums)
		}
		if !sums[0].UpdatedAt.Equal(at) {
			t.Fatalf("UpdatedAt = %v, want %v", sums[0].UpdatedAt, at)
		}
	})
}

func TestCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "nested", "status.db"))
	if err != nil {
		t.Fatalf("OpenCache() error = %v", err)
	}
	defer cache.Close()

	t.Run("missing row reads unknown", func(t *testing.T) {
		phase, at, err := cache.Phase("ghost")
		if err != nil {
			t.Fatalf("Phase() error = %v", err)
		}
		if phase != project.PhaseUnknown || !at.IsZero() {
			t.Fatalf("Phase() = %v at %v, want unknown at zero", phase, at)
		}
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		if err := cache.PutPhase("shop", project.PhaseStarting, time.Now()); err != nil {
			t.Fatalf("PutPhase() error = %v", err)
		}
		if err := cache.PutPhase("shop", project.PhaseRunning, time.Now()); err != nil {
			t.Fatalf("PutPhase() error = %v", err)
		}
		phase, _, err := cache.Phase("shop")
		if err != nil {
			t.Fatalf("Phase() error = %v", err)
		}
		if phase != project.PhaseRunning {
			t.Fatalf("Phase() = %v, want running", phase)
		}
	})

	t.Run("forget removes the row", func(t *testing.T) {
		if err := cache.PutPhase("gone", project.PhaseStopped, time.Now()); err != nil {
			t.Fatalf("PutPhase() error = %v", err)
		}
		if err := cache.Forget("gone"); err != nil {
			t.Fatalf("Forget() error = %v", err)
		}
		phase, _, err := cache.Phase("gone")
		if err != nil {
			t.Fatalf("Phase() error = %v", err)
		}
		if phase != project.PhaseUnknown {
			t.Fatalf("Phase() = %v, want unknown", phase)
		}
	})
}
