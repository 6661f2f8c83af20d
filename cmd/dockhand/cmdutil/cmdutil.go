// Package cmdutil wires the pieces every dockhand command needs: config,
// the project store, the container engine, and the lifecycle manager.
package cmdutil

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"dockhand/config"
	"dockhand/internal/engine"
	"dockhand/internal/lifecycle"
	"dockhand/internal/store"
	"dockhand/internal/watch"
)

// statusDBName lives inside the project root so it travels with the data.
const statusDBName = ".status.db"

// App bundles the long-lived components behind the CLI commands.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Cache   *store.Cache
	Engine  engine.Engine
	Manager *lifecycle.Manager
	Broker  *watch.Broker
}

// Connect builds the full stack. rootOverride, when non-empty, wins over the
// configured project root. The engine connection is lazy: commands that never
// touch containers work without a reachable Docker daemon.
func Connect(rootOverride string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	root := cfg.Root
	if rootOverride != "" {
		root = rootOverride
	}

	cache, err := store.OpenCache(filepath.Join(root, statusDBName))
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewDocker()
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("connect to docker: %w", err)
	}

	broker := watch.NewBroker()
	manager := lifecycle.NewManager(eng, slog.Default(),
		lifecycle.WithStatusCache(cache),
		lifecycle.WithPublisher(broker))

	st, err := store.New(root, slog.Default(),
		store.WithCache(cache),
		store.WithRunningReporter(manager))
	if err != nil {
		_ = eng.Close()
		_ = cache.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Store:   st,
		Cache:   cache,
		Engine:  eng,
		Manager: manager,
		Broker:  broker,
	}, nil
}

// Close releases the engine connection and the status cache.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Engine != nil {
		_ = a.Engine.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
}
