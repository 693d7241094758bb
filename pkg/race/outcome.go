package race

import (
	"fmt"
	"strings"
)

type Reason int

const (
	ReasonNone Reason = iota
	ReasonTimeout
	ReasonAllEliminated
	ReasonSoleSurvivor
	ReasonCompleted
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonAllEliminated:
		return "all-eliminated"
	case ReasonSoleSurvivor:
		return "sole-survivor"
	case ReasonCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// Outcome describes how a race ended. WinnerID is set for ReasonSoleSurvivor only.
type Outcome struct {
	Reason   Reason
	WinnerID string
}

// WinMode selects which termination rules apply
type WinMode int

const (
	// WinModeTimer lets every competitor race to the finish line until the time is up
	WinModeTimer WinMode = iota
	// WinModeSoleSurvivor ends the race as soon as exactly one competitor is left
	WinModeSoleSurvivor
)

func (m WinMode) String() string {
	switch m {
	case WinModeTimer:
		return "timer"
	case WinModeSoleSurvivor:
		return "sole-survivor"
	default:
		return fmt.Sprintf("WinMode(%d)", int(m))
	}
}

func ParseWinMode(s string) (WinMode, error) {
	switch strings.ToLower(s) {
	case "timer", "":
		return WinModeTimer, nil
	case "sole-survivor", "survivor":
		return WinModeSoleSurvivor, nil
	}
	return WinModeTimer, fmt.Errorf("unknown win mode %q", s)
}
