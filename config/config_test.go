package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Root == "" {
		t.Fatalf("Load() returned empty root for missing file")
	}

	cfg.Root = filepath.Join(t.TempDir(), "projects")
	cfg.LogLevel = "debug"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() after save error = %v", err)
	}
	if loaded.Root != cfg.Root || loaded.LogLevel != "debug" {
		t.Fatalf("Load() = %+v, want %+v", loaded, cfg)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "dockhand"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dockhand", "config.yaml"), []byte("\t{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatalf("Load() = nil error for malformed config")
	}
}
