package pipeline

import (
	"errors"
	"fmt"
)

// Phase is a step of the page-load state machine.
type Phase int

const (
	PhasePending Phase = iota
	PhaseEager
	PhaseLazy
	PhaseDelayed
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseEager:
		return "eager"
	case PhaseLazy:
		return "lazy"
	case PhaseDelayed:
		return "delayed"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ErrPhaseOrder is returned when a phase is entered before the previous one
// completed.
var ErrPhaseOrder = errors.New("pipeline: phase entered out of order")
