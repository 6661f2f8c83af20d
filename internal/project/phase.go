package project

// Phase describes the project lifecycle state.
type Phase uint8

const (
	PhaseUnknown Phase = iota
	PhaseStopped
	PhaseStarting
	PhaseRunning
	PhaseStopping
	PhaseDegraded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseStarting:
		return "starting"
	case PhaseRunning:
		return "running"
	case PhaseStopping:
		return "stopping"
	case PhaseDegraded:
		return "degraded"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of String. Unrecognized input maps to
// PhaseUnknown, which is also what a missing cache row reads as.
func ParsePhase(s string) Phase {
	switch s {
	case "stopped":
		return PhaseStopped
	case "starting":
		return PhaseStarting
	case "running":
		return PhaseRunning
	case "stopping":
		return PhaseStopping
	case "degraded":
		return PhaseDegraded
	case "error":
		return PhaseError
	default:
		return PhaseUnknown
	}
}
