// Package engine is the boundary to the container engine. The Engine
// interface is the port; the Docker adapter is the production implementation
// and the fake subpackage serves tests.
package engine

import (
	"context"
	"time"

	"dockhand/internal/project"
)

// Status is the engine-observed state of one container.
type Status string

const (
	StatusRunning    Status = "running"
	StatusExited     Status = "exited"
	StatusRestarting Status = "restarting"
	StatusCreated    Status = "created"
	// StatusStopped is reported for services the engine has no container
	// for. Absence is not an error.
	StatusStopped Status = "stopped"
)

// ContainerState captures per-service runtime facts. Ephemeral: never
// persisted, always re-fetched.
type ContainerState struct {
	ID         string
	Service    string
	Status     Status
	ExitCode   int
	ObservedAt time.Time
}

// Running reports whether the container is up.
func (s ContainerState) Running() bool { return s.Status == StatusRunning }

// CreateConfig holds the parameters for creating one service container.
type CreateConfig struct {
	Name          string
	Project       string
	Service       string
	Image         string
	Env           []string
	Ports         []project.PortMapping
	Mounts        []project.VolumeMount
	ExtraHosts    []string
	RestartPolicy string
}

// LogLine is one line of container output.
type LogLine struct {
	Text string
	Err  error // terminal: set on stream failure, then the channel closes
}

// Engine abstracts container engine operations. It executes single-container
// operations in the order given; dependency ordering is the lifecycle
// manager's job.
//
// Production: Docker (wrapping *client.Client). Testing: fake.Engine.
type Engine interface {
	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error

	ContainerCreate(ctx context.Context, cfg CreateConfig) error
	ContainerStart(ctx context.Context, name string) error
	ContainerStop(ctx context.Context, name string) error
	ContainerRemove(ctx context.Context, name string, force bool) error
	ImagePull(ctx context.Context, image string) error

	// List returns observed state for every container labelled with the
	// project, running or not. Services without containers are simply
	// absent from the result.
	List(ctx context.Context, projectName string) ([]ContainerState, error)

	// Logs streams log lines for one service container. The channel closes
	// when the container exits (follow=false), the stream ends, or ctx is
	// cancelled. Cancelling has no effect on the container.
	Logs(ctx context.Context, projectName, service string, follow bool) (<-chan LogLine, error)

	Close() error
}

// Clock abstracts time.Now() for deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// ContainerName is the canonical engine-side name for a service container.
func ContainerName(projectName, service string) string {
	return projectName + "-" + service
}
