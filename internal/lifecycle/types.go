package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"dockhand/internal/engine"
	"dockhand/internal/project"
)

// EventKind classifies progress events emitted during Apply.
type EventKind uint8

const (
	EventPlanStarted EventKind = iota
	EventServiceStarted
	EventServiceStopped
	EventServiceFailed
	EventPlanCompleted
	EventPlanFailed
)

func (k EventKind) String() string {
	switch k {
	case EventPlanStarted:
		return "plan-started"
	case EventServiceStarted:
		return "service-started"
	case EventServiceStopped:
		return "service-stopped"
	case EventServiceFailed:
		return "service-failed"
	case EventPlanCompleted:
		return "plan-completed"
	case EventPlanFailed:
		return "plan-failed"
	default:
		return fmt.Sprintf("event(%d)", k)
	}
}

// ProgressEvent reports per-service progress while a plan is applied.
type ProgressEvent struct {
	Kind    EventKind
	Project string
	Service string
	Err     error
	At      time.Time
}

// StatusChange is published on the watch broker whenever a project's
// classified phase moves.
type StatusChange struct {
	Project string
	Phase   project.Phase
	At      time.Time
}

// ServiceStatus pairs a declared service with what the engine reports
// about it. A service with no backing container has Status
// engine.StatusStopped and an empty ID.
type ServiceStatus struct {
	Service string
	State   engine.ContainerState
	Present bool
}

// Snapshot is the classified status of one project at a point in time.
type Snapshot struct {
	Project    string
	Phase      project.Phase
	Services   []ServiceStatus
	ObservedAt time.Time
}

// DriftKind describes one way observed state diverges from the declaration.
type DriftKind uint8

const (
	DriftMissing DriftKind = iota
	DriftStopped
	DriftUnexpected
)

func (k DriftKind) String() string {
	switch k {
	case DriftMissing:
		return "missing"
	case DriftStopped:
		return "stopped"
	case DriftUnexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("drift(%d)", k)
	}
}

// Drift is a single divergence between declared and observed state.
type Drift struct {
	Service string
	Kind    DriftKind
	Detail  string
}

// OperationError reports a failed plan application. Succeeded lists the
// services that completed before the failing one; nothing is rolled back.
type OperationError struct {
	Project   string
	Service   string
	Op        string
	Succeeded []string
	Cause     error
}

func (e *OperationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "project %s: %s %s failed", e.Project, e.Op, e.Service)
	if len(e.Succeeded) > 0 {
		fmt.Fprintf(&b, " (completed: %s)", strings.Join(e.Succeeded, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *OperationError) Unwrap() error { return e.Cause }
