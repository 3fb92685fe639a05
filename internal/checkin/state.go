package checkin

import (
	"errors"
	"fmt"
)

// State is the check-in dialog state.
type State int

const (
	Idle State = iota
	Selecting
	Confirming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Confirming:
		return "confirming"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transition moves the workflow between states.
type Transition int

const (
	ScanSucceeded Transition = iota
	SubmitSucceeded
	Dismiss
)

func (t Transition) String() string {
	switch t {
	case ScanSucceeded:
		return "scan_succeeded"
	case SubmitSucceeded:
		return "submit_succeeded"
	case Dismiss:
		return "dismiss"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// ErrIllegalTransition is returned when a transition does not apply to the current state.
var ErrIllegalTransition = errors.New("checkin: illegal transition")

// Next returns the state reached from s by t.
func Next(s State, t Transition) (State, error) {
	switch {
	case t == Dismiss:
		return Idle, nil
	case t == ScanSucceeded && s == Idle:
		return Selecting, nil
	case t == SubmitSucceeded && s == Selecting:
		return Confirming, nil
	}
	return s, fmt.Errorf("%w: %s from %s", ErrIllegalTransition, t, s)
}
