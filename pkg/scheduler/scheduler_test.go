//nolint:funlen // ok for tests
package scheduler

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
)

type recorder struct {
	events []model.RaceEvent
}

func (r *recorder) OnEvent(e model.RaceEvent) { r.events = append(r.events, e) }

func setup(t *testing.T, competitors []*race.Competitor, raceOpts []race.Option,
	opts ...Option,
) (*Scheduler, *recorder) {
	t.Helper()
	rec := &recorder{}
	var s *Scheduler
	raceOpts = append([]race.Option{
		race.WithObserver(race.ObserverFunc(func(e model.RaceEvent) {
			e.Elapsed = s.Elapsed()
			rec.OnEvent(e)
		})),
		race.WithElapsed(func() time.Duration { return s.Elapsed() }),
	}, raceOpts...)
	r, err := race.New(competitors, raceOpts...)
	require.NoError(t, err)
	s, err = New(r, opts...)
	require.NoError(t, err)
	return s, rec
}

func isDone(s *Scheduler) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func TestNew_InvalidIntervals(t *testing.T) {
	r, err := race.New([]*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)})
	require.NoError(t, err)
	_, err = New(r, WithFlipInterval(0))
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}

func TestScheduler_NothingBeforeStart(t *testing.T) {
	s, rec := setup(t, []*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)}, nil)

	require.NoError(t, s.Advance(10*time.Second))
	assert.False(t, s.Race().Started())
	assert.Empty(t, rec.events)
	assert.Zero(t, s.Pending())
}

func TestScheduler_StartRaceIdempotent(t *testing.T) {
	s, rec := setup(t, []*race.Competitor{
		race.NewCompetitor("A", "", 1, time.Second),
		race.NewCompetitor("B", "", 1, 2*time.Second),
	}, nil)

	assert.True(t, s.StartRace())
	pending := s.Pending()
	assert.Equal(t, 4, pending)
	assert.False(t, s.StartRace())
	assert.Equal(t, pending, s.Pending())
	assert.Len(t, rec.events, 1)
}

func TestScheduler_FlipBeforeMovementAtSameInstant(t *testing.T) {
	s, rec := setup(t, []*race.Competitor{
		race.NewCompetitor("A", "", 1, time.Second),
		race.NewCompetitor("B", "", 1, 3*time.Second),
	}, []race.Option{race.WithInitialSignal(race.Go)})
	require.True(t, s.StartRace())

	require.NoError(t, s.Advance(3*time.Second))

	snap := s.Snapshot()
	assert.True(t, snap.Finished)
	assert.Equal(t, race.ReasonAllEliminated, snap.Outcome.Reason)
	// A moved at 1s and 2s, B never got to move
	assert.InDelta(t, 2.0, snap.Competitors[0].Progress, 0)
	assert.InDelta(t, 0.0, snap.Competitors[1].Progress, 0)
	assert.Zero(t, s.Pending())
	assert.True(t, isDone(s))

	flips := 0
	for _, e := range rec.events {
		if e.Kind == model.EKSignalFlipped {
			flips++
			assert.Equal(t, 3*time.Second, e.Elapsed)
		}
	}
	assert.Equal(t, 1, flips)
}

func TestScheduler_Timeout(t *testing.T) {
	s, _ := setup(t, []*race.Competitor{
		race.NewCompetitor("A", "", 1, 10*time.Second),
		race.NewCompetitor("B", "", 1, 10*time.Second),
	}, []race.Option{race.WithDuration(3)}, WithFlipInterval(10*time.Second))
	require.True(t, s.StartRace())

	require.NoError(t, s.Advance(2*time.Second))
	assert.False(t, s.Race().Finished())
	assert.Equal(t, 1, s.Race().RemainingSeconds())

	require.NoError(t, s.Advance(time.Second))
	assert.True(t, s.Race().Finished())
	assert.Equal(t, race.ReasonTimeout, s.Race().Outcome().Reason)
	assert.Equal(t, 3*time.Second, s.Elapsed())
	for _, c := range s.Race().Competitors() {
		assert.Equal(t, race.Eliminated, c.Status)
	}
	assert.True(t, isDone(s))
}

func TestScheduler_RunToEnd(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	competitors := race.GenerateCompetitors(5, rng, race.DefaultCompetitorSettings)
	s, rec := setup(t, competitors, nil)
	require.True(t, s.StartRace())

	require.NoError(t, s.RunToEnd(10*time.Minute))
	assert.True(t, s.Race().Finished())
	assert.LessOrEqual(t, s.Elapsed(), 180*time.Second)
	assert.True(t, isDone(s))

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, model.EKRaceFinished, last.Kind)
	for i := 1; i < len(rec.events); i++ {
		assert.GreaterOrEqual(t, rec.events[i].Elapsed, rec.events[i-1].Elapsed)
		assert.Equal(t, rec.events[i-1].Seq+1, rec.events[i].Seq)
	}
}

func TestScheduler_RunToEndLimit(t *testing.T) {
	s, _ := setup(t, []*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)}, nil)
	require.True(t, s.StartRace())

	err := s.RunToEnd(5 * time.Second)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.Equal(t, 5*time.Second, s.Elapsed())
	assert.False(t, s.Race().Finished())
}

func TestScheduler_SameSeedSameResult(t *testing.T) {
	run := func() race.Snapshot {
		rng := rand.New(rand.NewPCG(99, 1))
		s, _ := setup(t, race.GenerateCompetitors(4, rng, race.DefaultCompetitorSettings), nil)
		require.True(t, s.StartRace())
		require.NoError(t, s.RunToEnd(time.Hour))
		return s.Snapshot()
	}
	assert.Equal(t, run(), run())
}

func TestScheduler_StopIdempotent(t *testing.T) {
	s, _ := setup(t, []*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)}, nil)
	require.True(t, s.StartRace())

	s.Stop()
	s.Stop()
	assert.True(t, isDone(s))
	assert.Zero(t, s.Pending())
	assert.ErrorIs(t, s.Advance(time.Second), ErrStopped)
	assert.ErrorIs(t, s.RunToEnd(time.Minute), ErrStopped)
	assert.False(t, s.StartRace())
	assert.False(t, s.Race().Finished())
}

func TestScheduler_RunWithManualClock(t *testing.T) {
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s, _ := setup(t, []*race.Competitor{
		race.NewCompetitor("A", "", 1, 700*time.Millisecond),
		race.NewCompetitor("B", "", 2, 900*time.Millisecond),
	}, []race.Option{race.WithDuration(4)}, WithClock(clock))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()
	require.NoError(t, s.Start())

	snap := s.Snapshot()
	assert.True(t, snap.Started)

	require.Eventually(t, func() bool {
		clock.Advance(100 * time.Millisecond)
		return isDone(s)
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, <-errCh)
	snap = s.Snapshot()
	assert.True(t, snap.Finished)
	assert.ErrorIs(t, s.Start(), ErrStopped)
}

func TestScheduler_RunRealClock(t *testing.T) {
	s, rec := setup(t, []*race.Competitor{
		race.NewCompetitor("A", "", 1, 5*time.Millisecond),
		race.NewCompetitor("B", "", 1, 7*time.Millisecond),
	}, []race.Option{race.WithDuration(5), race.WithFinishDistance(1000)},
		WithFlipInterval(20*time.Millisecond),
		WithCountdownInterval(10*time.Millisecond))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()
	require.NoError(t, s.Start())
	_ = s.Snapshot()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("race did not finish")
	}
	require.NoError(t, <-errCh)
	assert.True(t, s.Snapshot().Finished)
	assert.Equal(t, model.EKRaceFinished, rec.events[len(rec.events)-1].Kind)
}

func TestScheduler_RunContextCanceled(t *testing.T) {
	s, _ := setup(t, []*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	require.NoError(t, s.Start())
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	<-s.Done()
	assert.ErrorIs(t, s.Start(), ErrStopped)
	assert.False(t, s.Snapshot().Finished)
}

func TestScheduler_RunTwice(t *testing.T) {
	s, _ := setup(t, []*race.Competitor{race.NewCompetitor("A", "", 1, time.Second)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	require.NoError(t, s.Start())
	assert.Error(t, s.Run(ctx))
}
