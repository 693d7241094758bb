package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

func TestRenderer_Consume(t *testing.T) {
	buf := &bytes.Buffer{}
	r := New(buf, WithCountdownEvery(10))

	ch := make(chan model.RaceEvent, 10)
	ch <- model.RaceEvent{Kind: model.EKRaceStarted, RaceID: "r1", Remaining: 180, Message: "Red Light"}
	ch <- model.RaceEvent{Kind: model.EKSignalFlipped, Elapsed: 3 * time.Second, Message: "Green Light"}
	ch <- model.RaceEvent{Kind: model.EKCountdownChanged, Elapsed: 4 * time.Second, Remaining: 176}
	ch <- model.RaceEvent{Kind: model.EKCountdownChanged, Elapsed: 10 * time.Second, Remaining: 170}
	ch <- model.RaceEvent{
		Kind: model.EKCompetitorEliminated, Elapsed: 6 * time.Second,
		Message: "Player 1 Eliminated!", Progress: 12.5,
	}
	ch <- model.RaceEvent{
		Kind: model.EKCompetitorFinished, Elapsed: 61*time.Second + 250*time.Millisecond,
		Message: "Player 2 Finished!", Rank: 1,
	}
	close(ch)
	r.Consume(ch)

	assert.Equal(t, `[00:00.000] Race r1 started (180s). Red Light
[00:03.000] Green Light
[00:10.000] Time left: 170s
[00:06.000] Player 1 Eliminated! (at 12.5)
[01:01.250] Player 2 Finished! (rank 1)
`, buf.String())
}

func TestRenderer_NoCountdown(t *testing.T) {
	buf := &bytes.Buffer{}
	r := New(buf, WithCountdownEvery(0))
	r.Render(model.RaceEvent{Kind: model.EKCountdownChanged, Remaining: 0})
	assert.Empty(t, buf.String())
}

func TestWriteResult(t *testing.T) {
	buf := &bytes.Buffer{}
	res := &model.RaceResult{
		ID:     "r1",
		Reason: "completed",
		Standings: []model.Standing{
			{Pos: 1, CompetitorID: "C3", Name: "Player 3", Status: "FINISHED", Progress: 602, Speed: 7, IntervalMs: 700, Rank: 1},
			{Pos: 2, CompetitorID: "C1", Name: "Player 1", Status: "ELIMINATED", Progress: 30, Speed: 5, IntervalMs: 900},
		},
	}
	require.NoError(t, WriteResult(buf, res))
	out := buf.String()
	assert.Contains(t, out, "Race r1: completed")
	assert.Contains(t, out, "Leaderboard:\n1. Player 3\n")
	assert.Contains(t, out, "ELIMINATED")
	assert.Regexp(t, `2\s+C1\s+Player 1\s+ELIMINATED\s+30\.0\s+5\.00\s+900ms\s+-`, out)
}

func TestWriteResult_NobodyFinished(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteResult(buf, &model.RaceResult{ID: "r2", Reason: "timeout"}))
	assert.Contains(t, buf.String(), "nobody finished")
}

func TestWriteResultList(t *testing.T) {
	buf := &bytes.Buffer{}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := WriteResultList(buf, []*model.RaceResult{
		{
			ID: "r1", StartedAt: start, FinishedAt: start.Add(42 * time.Second),
			Reason: "sole-survivor", WinnerID: "C2",
			Settings:  model.RaceSettings{Competitors: 3},
			Standings: []model.Standing{{Name: "Player 2", Rank: 1}},
		},
	})
	require.NoError(t, err)
	assert.Regexp(t, `r1\s+2026-03-01T10:00:00Z\s+42s\s+sole-survivor\s+C2\s+Player 2\s+3`, buf.String())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "03:00.000", FormatElapsed(3*time.Minute))
	assert.Equal(t, "00:01.500", FormatElapsed(1500*time.Millisecond))
}
