package model

import "time"

// RaceResult is the final record of a race
type RaceResult struct {
	ID         string       `json:"id"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Reason     string       `json:"reason"`
	WinnerID   string       `json:"winnerId,omitempty"`
	Settings   RaceSettings `json:"settings"`
	Standings  []Standing   `json:"standings"`
}

// Standing holds the final state of one competitor.
// Rank is 0 for competitors without a leaderboard entry.
type Standing struct {
	Pos          int     `json:"pos"`
	CompetitorID string  `json:"competitorId"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	Speed        float64 `json:"speed"`
	IntervalMs   int     `json:"intervalMs"`
	Rank         int     `json:"rank,omitempty"`
}

// RaceSettings describes the parameters a race was run with
type RaceSettings struct {
	Competitors    int     `json:"competitors"`
	FinishDistance float64 `json:"finishDistance"`
	DurationSec    int     `json:"durationSec"`
	FlipIntervalMs int     `json:"flipIntervalMs"`
	WinMode        string  `json:"winMode"`
	InitialSignal  string  `json:"initialSignal"`
	ReactionMs     int     `json:"reactionMs,omitempty"`
	Seed           uint64  `json:"seed"`
}
