package hosted

// State is the lifecycle state of a Runner.
type State int32

// Possible runner states. Transitions only move forward.
const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
