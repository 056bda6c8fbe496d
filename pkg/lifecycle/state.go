package lifecycle

import (
	"fmt"
	"time"
)

// State is the readiness state of an App.
type State int32

const (
	StateSetup State = iota
	StateReadying
	StateReady
	StateClosing
	StateClosed
)

var stateNames = [...]string{
	StateSetup:    "SETUP",
	StateReadying: "READYING",
	StateReady:    "READY",
	StateClosing:  "CLOSING",
	StateClosed:   "CLOSED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name so it can be used directly in JSON
// payloads and log attributes.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown lifecycle state %q", name)
}

// ShuttingDown reports whether s is CLOSING or CLOSED.
func (s State) ShuttingDown() bool {
	return s == StateClosing || s == StateClosed
}

// Transition describes one state change. Err is the failure behind it: the
// startup error on a fall back to SETUP, or failed shutdown hooks on CLOSED.
type Transition struct {
	From State
	To   State
	At   time.Time
	Err  error
}

// Observer is called synchronously, in transition order, after every state
// change. Observers must not call Start, Init or Close.
type Observer func(Transition)
