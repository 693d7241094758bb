package race

import (
	"fmt"
	"strings"
)

type SignalState int

const (
	Stop SignalState = iota
	Go
)

func (s SignalState) String() string {
	switch s {
	case Go:
		return "GO"
	case Stop:
		return "STOP"
	default:
		return fmt.Sprintf("SignalState(%d)", int(s))
	}
}

// Message returns the text shown to the players for this state
func (s SignalState) Message() string {
	if s == Go {
		return "Green Light"
	}
	return "Red Light"
}

func ParseSignalState(s string) (SignalState, error) {
	switch strings.ToLower(s) {
	case "go", "green":
		return Go, nil
	case "stop", "red":
		return Stop, nil
	}
	return Stop, fmt.Errorf("unknown signal state %q", s)
}

// Signal holds the shared GO/STOP state. Only the race engine flips it.
type Signal struct {
	state SignalState
}

func NewSignal(initial SignalState) Signal {
	return Signal{state: initial}
}

// Flip toggles the state and returns the new one
func (s *Signal) Flip() SignalState {
	if s.state == Go {
		s.state = Stop
	} else {
		s.state = Go
	}
	return s.state
}

func (s *Signal) Current() SignalState {
	return s.state
}
