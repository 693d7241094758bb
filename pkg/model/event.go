package model

import "time"

// RaceEvent is emitted by the race engine whenever observable state changes.
// Only the attributes relevant for the Kind are set.
type RaceEvent struct {
	RaceID         string        `json:"raceId"`
	Seq            int           `json:"seq"`
	Kind           EventKind     `json:"kind"`
	Elapsed        time.Duration `json:"elapsed"`
	Signal         string        `json:"signal,omitempty"`
	CompetitorID   string        `json:"competitorId,omitempty"`
	CompetitorName string        `json:"competitorName,omitempty"`
	Progress       float64       `json:"progress,omitempty"`
	Rank           int           `json:"rank,omitempty"`
	Remaining      int           `json:"remaining"`
	Reason         string        `json:"reason,omitempty"`
	WinnerID       string        `json:"winnerId,omitempty"`
	Message        string        `json:"message,omitempty"`
}
