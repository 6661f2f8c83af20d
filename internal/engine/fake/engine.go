// Package fake provides an in-memory engine.Engine for tests.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dockhand/internal/engine"
)

var _ engine.Engine = (*Engine)(nil)

type containerState struct {
	Config   engine.CreateConfig
	Running  bool
	ExitCode int
}

// Engine is an in-memory implementation of engine.Engine.
type Engine struct {
	CallRecorder
	mu         sync.Mutex
	reachable  bool
	containers map[string]*containerState
	logs       map[string][]string

	PingErr            func(ctx context.Context) error
	ContainerCreateErr func(ctx context.Context, cfg engine.CreateConfig) error
	ContainerStartErr  func(ctx context.Context, name string) error
	ContainerStopErr   func(ctx context.Context, name string) error
	ContainerRemoveErr func(ctx context.Context, name string, force bool) error
	ImagePullErr       func(ctx context.Context, image string) error
	ListErr            func(ctx context.Context, projectName string) error
	LogsErr            func(ctx context.Context, projectName, service string) error
}

// New creates an Engine that is reachable by default.
func New() *Engine {
	return &Engine{
		reachable:  true,
		containers: make(map[string]*containerState),
		logs:       make(map[string][]string),
	}
}

// SetUnreachable makes subsequent calls fail with ErrUnavailable.
func (e *Engine) SetUnreachable() {
	e.mu.Lock()
	e.reachable = false
	e.mu.Unlock()
}

// SetExited marks a container as exited with the given code.
func (e *Engine) SetExited(name string, exitCode int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cs, ok := e.containers[name]; ok {
		cs.Running = false
		cs.ExitCode = exitCode
	}
}

// SetLogs seeds the log lines returned for a container.
func (e *Engine) SetLogs(name string, lines []string) {
	e.mu.Lock()
	e.logs[name] = append([]string(nil), lines...)
	e.mu.Unlock()
}

// Container reports the stored state for name.
func (e *Engine) Container(name string) (engine.CreateConfig, bool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.containers[name]
	if !ok {
		return engine.CreateConfig{}, false, false
	}
	return cs.Config, true, cs.Running
}

func (e *Engine) checkReachable() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.reachable {
		return fmt.Errorf("%w: fake engine set unreachable", engine.ErrUnavailable)
	}
	return nil
}

func (e *Engine) Ping(ctx context.Context) error {
	e.record("Ping")
	if e.PingErr != nil {
		if err := e.PingErr(ctx); err != nil {
			return err
		}
	}
	return e.checkReachable()
}

func (e *Engine) ContainerCreate(ctx context.Context, cfg engine.CreateConfig) error {
	e.record("ContainerCreate", cfg.Name)
	if e.ContainerCreateErr != nil {
		if err := e.ContainerCreateErr(ctx, cfg); err != nil {
			return err
		}
	}
	if err := e.checkReachable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.containers[cfg.Name]; exists {
		return fmt.Errorf("container %q already exists", cfg.Name)
	}
	e.containers[cfg.Name] = &containerState{Config: cfg}
	return nil
}

func (e *Engine) ContainerStart(ctx context.Context, name string) error {
	e.record("ContainerStart", name)
	if e.ContainerStartErr != nil {
		if err := e.ContainerStartErr(ctx, name); err != nil {
			return err
		}
	}
	if err := e.checkReachable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.containers[name]
	if !ok {
		return fmt.Errorf("container %q does not exist", name)
	}
	cs.Running = true
	return nil
}

func (e *Engine) ContainerStop(ctx context.Context, name string) error {
	e.record("ContainerStop", name)
	if e.ContainerStopErr != nil {
		if err := e.ContainerStopErr(ctx, name); err != nil {
			return err
		}
	}
	if err := e.checkReachable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cs, ok := e.containers[name]; ok {
		cs.Running = false
	}
	return nil
}

func (e *Engine) ContainerRemove(ctx context.Context, name string, force bool) error {
	e.record("ContainerRemove", name, force)
	if e.ContainerRemoveErr != nil {
		if err := e.ContainerRemoveErr(ctx, name, force); err != nil {
			return err
		}
	}
	if err := e.checkReachable(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.containers[name]
	if ok && cs.Running && !force {
		return fmt.Errorf("container %q is running", name)
	}
	delete(e.containers, name)
	return nil
}

func (e *Engine) ImagePull(ctx context.Context, img string) error {
	e.record("ImagePull", img)
	if e.ImagePullErr != nil {
		if err := e.ImagePullErr(ctx, img); err != nil {
			return err
		}
	}
	return e.checkReachable()
}

func (e *Engine) List(ctx context.Context, projectName string) ([]engine.ContainerState, error) {
	e.record("List", projectName)
	if e.ListErr != nil {
		if err := e.ListErr(ctx, projectName); err != nil {
			return nil, err
		}
	}
	if err := e.checkReachable(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []engine.ContainerState
	for name, cs := range e.containers {
		if cs.Config.Project != projectName {
			continue
		}
		status := engine.StatusExited
		if cs.Running {
			status = engine.StatusRunning
		}
		out = append(out, engine.ContainerState{
			ID:         "fake-" + name,
			Service:    cs.Config.Service,
			Status:     status,
			ExitCode:   cs.ExitCode,
			ObservedAt: time.Now(),
		})
	}
	return out, nil
}

func (e *Engine) Logs(ctx context.Context, projectName, service string, follow bool) (<-chan engine.LogLine, error) {
	e.record("Logs", projectName, service, follow)
	if e.LogsErr != nil {
		if err := e.LogsErr(ctx, projectName, service); err != nil {
			return nil, err
		}
	}
	if err := e.checkReachable(); err != nil {
		return nil, err
	}

	name := engine.ContainerName(projectName, service)
	e.mu.Lock()
	stored := append([]string(nil), e.logs[name]...)
	e.mu.Unlock()

	ch := make(chan engine.LogLine, len(stored))
	go func() {
		defer close(ch)
		for _, line := range stored {
			select {
			case ch <- engine.LogLine{Text: line}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (e *Engine) Close() error {
	e.record("Close")
	return nil
}
