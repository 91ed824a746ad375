package types

import "fmt"

// Phase is the computation status reported by the engine. It gates which
// actions are valid.
type Phase uint8

const (
	// PhaseIdle accepts votes and the start of counting.
	PhaseIdle Phase = iota
	// PhaseRunning means the counting computation is in progress.
	PhaseRunning
	// PhaseOutput covers declassification, attestation and cleanup.
	PhaseOutput
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseOutput:
		return "output"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}
