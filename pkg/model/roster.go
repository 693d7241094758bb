package model

// RosterEntry describes a competitor with fixed attributes.
// Zero values for Speed and IntervalMs are drawn from the configured ranges.
type RosterEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Speed      float64 `json:"speed"`
	IntervalMs int     `json:"intervalMs"`
}
