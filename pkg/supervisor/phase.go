package supervisor

// Phase is the supervisor's lifecycle position.
type Phase uint8

const (
	// PhaseInit is before Boot.
	PhaseInit Phase = iota

	// PhaseSettings is opening the settings store.
	PhaseSettings

	// PhaseConnectivity is starting the connectivity manager.
	PhaseConnectivity

	// PhaseDispatcher is starting the HTTP server.
	PhaseDispatcher

	// PhaseActuator is configuring the actuator.
	PhaseActuator

	// PhaseIdle is the steady state after boot.
	PhaseIdle

	// PhaseStopped is after Shutdown.
	PhaseStopped

	// PhaseFailed is after a boot step failed.
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "INIT"
	case PhaseSettings:
		return "SETTINGS"
	case PhaseConnectivity:
		return "CONNECTIVITY"
	case PhaseDispatcher:
		return "DISPATCHER"
	case PhaseActuator:
		return "ACTUATOR"
	case PhaseIdle:
		return "IDLE"
	case PhaseStopped:
		return "STOPPED"
	case PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}
