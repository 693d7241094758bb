package basedata

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
	resultrepos "github.com/mpapenbr/redlight-race-go/pkg/repository/result"
)

const SampleRaceID = "5b0d7c0e-2f4e-4c7e-9a43-0d6a3c1e7f10"

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

func SampleSettings() model.RaceSettings {
	return model.RaceSettings{
		Competitors:    3,
		FinishDistance: 600,
		DurationSec:    180,
		FlipIntervalMs: 3000,
		WinMode:        "timer",
		InitialSignal:  "STOP",
		Seed:           42,
	}
}

// SampleResult is a finished race with one finisher and two eliminated competitors
func SampleResult() *model.RaceResult {
	return &model.RaceResult{
		ID:         SampleRaceID,
		StartedAt:  TestTime(),
		FinishedAt: TestTime().Add(95 * time.Second),
		Reason:     "completed",
		Settings:   SampleSettings(),
		Standings: []model.Standing{
			{
				Pos: 1, CompetitorID: "C3", Name: "Player 3", Status: "FINISHED",
				Progress: 602.125, Speed: 6.875, IntervalMs: 640, Rank: 1,
			},
			{
				Pos: 2, CompetitorID: "C1", Name: "Player 1", Status: "ELIMINATED",
				Progress: 412.5, Speed: 5.5, IntervalMs: 910,
			},
			{
				Pos: 3, CompetitorID: "C2", Name: "Player 2", Status: "ELIMINATED",
				Progress: 97.25, Speed: 3.25, IntervalMs: 1320,
			},
		},
	}
}

func CreateSampleResult(pool *pgxpool.Pool) *model.RaceResult {
	res := SampleResult()
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		return resultrepos.Create(context.Background(), tx, res)
	})
	if err != nil {
		log.Fatalf("CreateSampleResult: %v\n", err)
	}
	return res
}
