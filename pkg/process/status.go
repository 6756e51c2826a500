// Package process supervises child commands: launching them with allocated
// ports injected as environment variables, tracking their lifecycle state
// machine, and reaping them once they exit.
package process

import "time"

// Phase is a RunningEntry's lifecycle state.
type Phase string

const (
	PhaseStarting   Phase = "Starting"
	PhaseRunning    Phase = "Running"
	PhaseUnhealthy  Phase = "Unhealthy"
	PhaseSunsetting Phase = "Sunsetting"
	PhaseExited     Phase = "Exited"
)

// ExitInfo is populated once a RunningEntry transitions to PhaseExited.
type ExitInfo struct {
	Code       int
	ApproxTime time.Time
}
