// Package session runs a single race: it wires the race engine to the scheduler,
// fans out the events to the registered sinks and builds the final result.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
	"github.com/mpapenbr/redlight-race-go/pkg/scheduler"
	"github.com/mpapenbr/redlight-race-go/pkg/utils/broadcast"
)

// Sink consumes the event stream of a race until the channel is closed
type Sink func(events <-chan model.RaceEvent)

// ResultHandler is called once with the final result, e.g. to store or publish it
type ResultHandler func(ctx context.Context, res *model.RaceResult) error

type Session struct {
	id             string
	competitors    []*race.Competitor
	raceOpts       []race.Option
	schedOpts      []scheduler.Option
	settings       model.RaceSettings
	sinks          []Sink
	resultHandlers []ResultHandler
	now            func() time.Time
	mp             metric.MeterProvider
	tp             trace.TracerProvider
	l              *log.Logger

	race    *race.Race
	sched   *scheduler.Scheduler
	events  chan model.RaceEvent
	bcst    broadcast.Server[model.RaceEvent]
	metrics *raceMetrics
	span    trace.Span
	spanCtx context.Context
	wg      sync.WaitGroup
	runOnce sync.Once
}

type Option func(s *Session)

func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

func WithRaceOptions(opts ...race.Option) Option {
	return func(s *Session) {
		s.raceOpts = append(s.raceOpts, opts...)
	}
}

func WithSchedulerOptions(opts ...scheduler.Option) Option {
	return func(s *Session) {
		s.schedOpts = append(s.schedOpts, opts...)
	}
}

// WithSettings sets the settings recorded in the result
func WithSettings(settings model.RaceSettings) Option {
	return func(s *Session) {
		s.settings = settings
	}
}

func WithSink(sink Sink) Option {
	return func(s *Session) {
		s.sinks = append(s.sinks, sink)
	}
}

func WithResultHandler(h ResultHandler) Option {
	return func(s *Session) {
		s.resultHandlers = append(s.resultHandlers, h)
	}
}

// WithNow sets the wall clock used for start and finish timestamps
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Session) {
		s.mp = mp
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Session) {
		s.tp = tp
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.l = l
	}
}

func New(competitors []*race.Competitor, opts ...Option) (*Session, error) {
	ret := &Session{
		id:          uuid.NewString(),
		competitors: competitors,
		now:         time.Now,
		mp:          otel.GetMeterProvider(),
		tp:          otel.GetTracerProvider(),
		l:           log.Default().Named("session"),
		events:      make(chan model.RaceEvent, 256),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.l = ret.l.With(log.String("race", ret.id))
	ret.metrics = newRaceMetrics(ret.mp, ret.l)

	raceOpts := append([]race.Option{
		race.WithLogger(ret.l.Named("race")),
	}, ret.raceOpts...)
	raceOpts = append(raceOpts,
		race.WithID(ret.id),
		race.WithObserver(race.ObserverFunc(ret.onEvent)),
		race.WithElapsed(ret.elapsed))
	r, err := race.New(competitors, raceOpts...)
	if err != nil {
		return nil, fmt.Errorf("create race: %w", err)
	}
	ret.race = r

	schedOpts := append([]scheduler.Option{
		scheduler.WithLogger(ret.l.Named("scheduler")),
	}, ret.schedOpts...)
	if ret.sched, err = scheduler.New(r, schedOpts...); err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if ret.settings.Competitors == 0 {
		ret.settings.Competitors = len(competitors)
	}
	return ret, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Race() *race.Race {
	return s.race
}

func (s *Session) Scheduler() *scheduler.Scheduler {
	return s.sched
}

// RunFast computes the whole race in virtual time
func (s *Session) RunFast(ctx context.Context) (*model.RaceResult, error) {
	return s.run(ctx, func(ctx context.Context) error {
		s.sched.StartRace()
		limit := time.Duration(s.race.Duration()+1) * s.sched.CountdownInterval()
		return s.sched.RunToEnd(limit)
	})
}

// RunRealtime runs the race in wall clock time until it is finished or ctx is done.
// On cancellation the partial result is returned together with the context error.
func (s *Session) RunRealtime(ctx context.Context) (*model.RaceResult, error) {
	return s.run(ctx, func(ctx context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- s.sched.Run(ctx) }()
		if err := s.sched.Start(); err != nil {
			return err
		}
		return <-errCh
	})
}

func (s *Session) run(ctx context.Context, drive func(ctx context.Context) error) (
	*model.RaceResult, error,
) {
	var res *model.RaceResult
	err := errors.New("session already used")
	s.runOnce.Do(func() {
		res, err = s.doRun(ctx, drive)
	})
	return res, err
}

func (s *Session) doRun(ctx context.Context, drive func(ctx context.Context) error) (
	*model.RaceResult, error,
) {
	s.spanCtx, s.span = s.tp.Tracer("rlr.session").Start(ctx, "race",
		trace.WithAttributes(
			attribute.String("race.id", s.id),
			attribute.Int("race.competitors", len(s.competitors)),
			attribute.String("race.winMode", s.race.WinMode().String()),
		))
	defer s.span.End()

	s.startSinks()
	startedAt := s.now()
	s.l.Info("race session started", log.Int("competitors", len(s.competitors)))

	runErr := drive(ctx)
	if errors.Is(runErr, scheduler.ErrStopped) && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	s.sched.Stop()
	<-s.sched.Done()
	s.stopSinks()

	res := BuildResult(s.race, s.settings, startedAt, s.now())
	s.span.SetAttributes(
		attribute.String("race.reason", res.Reason),
		attribute.String("race.winner", res.WinnerID))
	if runErr != nil {
		s.span.RecordError(runErr)
		s.l.Warn("race session aborted", log.ErrorField(runErr))
		return res, runErr
	}

	handlerCtx := log.AddToContext(s.spanCtx, s.l)
	var errs []error
	for _, h := range s.resultHandlers {
		if err := h(handlerCtx, res); err != nil {
			s.l.Error("result handler failed", log.ErrorField(err))
			errs = append(errs, err)
		}
	}
	s.l.Info("race session done",
		log.String("reason", res.Reason),
		log.Int("finishers", len(s.race.Leaderboard())),
		log.Duration("elapsed", s.sched.Elapsed()))
	return res, errors.Join(errs...)
}

func (s *Session) startSinks() {
	s.bcst = broadcast.NewServer("race", s.events,
		broadcast.WithTelemetry[model.RaceEvent](s.id),
		broadcast.WithLogger[model.RaceEvent](s.l.Named("broadcast")))
	for _, sink := range s.sinks {
		ch := s.bcst.Subscribe()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sink(ch)
		}()
	}
}

// stopSinks closes the event stream and waits until every sink drained it
func (s *Session) stopSinks() {
	close(s.events)
	<-s.bcst.Done()
	s.wg.Wait()
}

// onEvent runs on the goroutine that drives the race
func (s *Session) onEvent(e model.RaceEvent) {
	e.Elapsed = s.elapsed()
	s.metrics.record(s.spanCtx, &e)
	switch e.Kind {
	case model.EKCompetitorEliminated, model.EKCompetitorFinished, model.EKRaceFinished:
		s.span.AddEvent(e.Kind.String(), trace.WithAttributes(
			attribute.String("competitor", e.CompetitorID),
			attribute.Int64("elapsedMs", e.Elapsed.Milliseconds()),
			attribute.String("message", e.Message)))
	case model.EKUnknown, model.EKRaceStarted, model.EKSignalFlipped, model.EKCountdownChanged:
	}
	s.events <- e
}

func (s *Session) elapsed() time.Duration {
	if s.sched == nil {
		return 0
	}
	return s.sched.Elapsed()
}

// BuildResult creates the result record of r. Finishers come first in rank order,
// the others follow by progress.
func BuildResult(r *race.Race, settings model.RaceSettings, startedAt, finishedAt time.Time) *model.RaceResult {
	outcome := r.Outcome()
	competitors := r.Competitors()
	order := lo.Map(competitors, func(c race.CompetitorView, i int) int { return i })
	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := competitors[order[i]], competitors[order[j]]
		ri, iRanked := r.Rank(ci.ID)
		rj, jRanked := r.Rank(cj.ID)
		switch {
		case iRanked && jRanked:
			return ri < rj
		case iRanked != jRanked:
			return iRanked
		default:
			return ci.Progress > cj.Progress
		}
	})

	standings := make([]model.Standing, 0, len(competitors))
	for pos, idx := range order {
		c := competitors[idx]
		rank, _ := r.Rank(c.ID)
		standings = append(standings, model.Standing{
			Pos:          pos + 1,
			CompetitorID: c.ID,
			Name:         c.Name,
			Status:       c.Status.String(),
			Progress:     c.Progress,
			Speed:        c.Speed,
			IntervalMs:   int(c.Interval / time.Millisecond),
			Rank:         rank,
		})
	}
	return &model.RaceResult{
		ID:         r.ID(),
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		Reason:     outcome.Reason.String(),
		WinnerID:   outcome.WinnerID,
		Settings:   settings,
		Standings:  standings,
	}
}
