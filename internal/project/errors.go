package project

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no project with the given name exists
	// under the root directory.
	ErrNotFound = errors.New("project not found")

	// ErrDuplicateName is returned by create when the name is taken.
	ErrDuplicateName = errors.New("project name already exists")

	// ErrCorruptDefinition is returned when a persisted compose document
	// cannot be parsed at all.
	ErrCorruptDefinition = errors.New("corrupt project definition")

	// ErrProjectRunning is returned by delete while containers are up.
	ErrProjectRunning = errors.New("project is running")

	// ErrCyclicDependency is returned when the service dependency graph
	// contains a cycle.
	ErrCyclicDependency = errors.New("cyclic service dependency")

	// ErrOperationInProgress is returned when an apply is requested on a
	// project that already has one in flight.
	ErrOperationInProgress = errors.New("operation already in progress")
)

// InvalidDefinitionError reports a malformed or semantically invalid compose
// document with enough location context to render a precise message.
type InvalidDefinitionError struct {
	Field  string // dotted path, e.g. "services.web.ports[0]"
	Line   int    // 0 when unknown
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Field != "" && e.Line > 0:
		return fmt.Sprintf("invalid definition at %s (line %d): %s", e.Field, e.Line, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid definition at %s: %s", e.Field, e.Reason)
	case e.Line > 0:
		return fmt.Sprintf("invalid definition (line %d): %s", e.Line, e.Reason)
	default:
		return "invalid definition: " + e.Reason
	}
}
