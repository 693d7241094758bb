package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/race"
)

var (
	ErrStopped       = errors.New("scheduler stopped")
	ErrLimitExceeded = errors.New("time limit exceeded")
)

const (
	DefaultFlipInterval      = 3 * time.Second
	DefaultCountdownInterval = time.Second
)

// Scheduler delivers flip, countdown and movement events to a race.
// All mutations of the race happen on a single goroutine: either the caller of the
// synchronous API (StartRace, Advance, RunToEnd) or the goroutine executing Run.
type Scheduler struct {
	race              *race.Race
	clock             Clock
	flipInterval      time.Duration
	countdownInterval time.Duration
	queue             timedQueue
	base              time.Time
	now               time.Duration
	dropped           int

	inbox    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
	running  atomic.Bool
	l        *log.Logger
}

type Option func(s *Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func WithFlipInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.flipInterval = d
	}
}

func WithCountdownInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.countdownInterval = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		s.l = l
	}
}

func New(r *race.Race, opts ...Option) (*Scheduler, error) {
	ret := &Scheduler{
		race:              r,
		clock:             RealClock{},
		flipInterval:      DefaultFlipInterval,
		countdownInterval: DefaultCountdownInterval,
		inbox:             make(chan func()),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
		l:                 log.Default().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if r == nil {
		return nil, errors.New("scheduler needs a race")
	}
	if ret.flipInterval <= 0 || ret.countdownInterval <= 0 {
		return nil, fmt.Errorf("invalid intervals flip=%v countdown=%v",
			ret.flipInterval, ret.countdownInterval)
	}
	return ret, nil
}

// StartRace starts the race and schedules the initial events.
// Only the first call has an effect, it returns false otherwise.
func (s *Scheduler) StartRace() bool {
	if s.isStopped() {
		return false
	}
	if !s.race.Start() {
		return false
	}
	s.base = s.clock.Now()
	s.queue.push(timedEvent{at: s.now + s.flipInterval, kind: kindFlip})
	s.queue.push(timedEvent{at: s.now + s.countdownInterval, kind: kindCountdown})
	for _, c := range s.race.Competitors() {
		s.queue.push(timedEvent{at: s.now + c.Interval, kind: kindMovement, competitorID: c.ID})
	}
	s.l.Debug("race scheduled", log.Int("events", s.queue.len()))
	return true
}

// Advance moves the virtual time forward by d and processes every event due until then
func (s *Scheduler) Advance(d time.Duration) error {
	if s.isStopped() {
		return ErrStopped
	}
	s.processUntil(s.now + d)
	return nil
}

// RunToEnd processes events until the race is finished.
// ErrLimitExceeded is returned if the race is still running at elapsed time limit.
func (s *Scheduler) RunToEnd(limit time.Duration) error {
	if s.isStopped() {
		return ErrStopped
	}
	for !s.race.Finished() {
		next, ok := s.queue.peek()
		if !ok {
			return errors.New("no pending events")
		}
		if next.at > limit {
			s.processUntil(limit)
			return ErrLimitExceeded
		}
		s.processUntil(next.at)
	}
	return nil
}

// Elapsed returns the virtual time of the event currently or last processed
func (s *Scheduler) Elapsed() time.Duration {
	return s.now
}

// Pending returns the number of queued events
func (s *Scheduler) Pending() int {
	return s.queue.len()
}

// Dropped returns the number of events that arrived too late to be applied
func (s *Scheduler) Dropped() int {
	return s.dropped
}

func (s *Scheduler) CountdownInterval() time.Duration {
	return s.countdownInterval
}

func (s *Scheduler) Race() *race.Race {
	return s.race
}

// Run serves the scheduler loop until the race is finished, Stop is called or the
// context is done. Events fire in clock time.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer s.closeDone()
	if s.isStopped() {
		return ErrStopped
	}
	s.l.Debug("scheduler loop started")
	for !s.race.Finished() {
		var timer <-chan time.Time
		if next, ok := s.queue.peek(); ok {
			timer = s.clock.After(next.at - s.wallElapsed())
		}
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.stop:
			s.l.Debug("scheduler stopped")
			return nil
		case cmd := <-s.inbox:
			cmd()
		case <-timer:
			s.processUntil(s.wallElapsed())
		}
	}
	s.l.Debug("scheduler loop done", log.Duration("elapsed", s.now))
	return nil
}

// Start requests the race start from the running loop
func (s *Scheduler) Start() error {
	return s.exec(func() { s.StartRace() })
}

// Snapshot returns the race state. It is safe to call while Run is active.
func (s *Scheduler) Snapshot() race.Snapshot {
	if !s.running.Load() {
		return s.race.Snapshot()
	}
	var ret race.Snapshot
	if err := s.exec(func() { ret = s.race.Snapshot() }); err != nil {
		// loop is gone, the race is not touched anymore
		<-s.done
		return s.race.Snapshot()
	}
	return ret
}

// Stop ends the scheduler. Pending events are discarded. Calling Stop more than once is fine.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if !s.running.Load() {
			s.queue.clear()
			s.closeDone()
		}
	})
}

// Done is closed once the race is finished or the scheduler is stopped
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) exec(cmd func()) error {
	reply := make(chan struct{})
	select {
	case s.inbox <- func() { cmd(); close(reply) }:
		<-reply
		return nil
	case <-s.done:
		return ErrStopped
	case <-s.stop:
		return ErrStopped
	}
}

func (s *Scheduler) isStopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *Scheduler) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Scheduler) wallElapsed() time.Duration {
	return s.clock.Now().Sub(s.base)
}

func (s *Scheduler) processUntil(until time.Duration) {
	for {
		next, ok := s.queue.peek()
		if !ok || next.at > until {
			break
		}
		e := s.queue.pop()
		if e.at > s.now {
			s.now = e.at
		}
		s.dispatch(e)
		if s.race.Finished() {
			s.queue.clear()
			s.closeDone()
			return
		}
	}
	if until > s.now {
		s.now = until
	}
}

func (s *Scheduler) dispatch(e timedEvent) {
	var err error
	switch e.kind {
	case kindFlip:
		if _, err = s.race.FlipSignal(); err == nil {
			s.queue.push(timedEvent{at: e.at + s.flipInterval, kind: kindFlip})
		}
	case kindCountdown:
		if err = s.race.CountdownTick(); err == nil {
			s.queue.push(timedEvent{at: e.at + s.countdownInterval, kind: kindCountdown})
		}
	case kindMovement:
		if err = s.race.MovementTick(e.competitorID); err == nil {
			if c, ok := s.race.Competitor(e.competitorID); ok && c.Status == race.Racing {
				s.queue.push(timedEvent{
					at:           e.at + c.Interval,
					kind:         kindMovement,
					competitorID: e.competitorID,
				})
			}
		}
	}
	if err == nil {
		return
	}
	if errors.Is(err, race.ErrRaceFinished) || errors.Is(err, race.ErrNotRacing) {
		s.dropped++
		s.l.Debug("late event dropped",
			log.Stringer("kind", e.kind),
			log.String("competitor", e.competitorID),
			log.Duration("at", e.at),
			log.ErrorField(err))
		return
	}
	s.l.Warn("event failed",
		log.Stringer("kind", e.kind),
		log.String("competitor", e.competitorID),
		log.ErrorField(err))
}
