package race

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

var (
	ErrNotStarted        = errors.New("race not started")
	ErrRaceFinished      = errors.New("race already finished")
	ErrNotRacing         = errors.New("competitor is not racing")
	ErrUnknownCompetitor = errors.New("unknown competitor")
)

const (
	DefaultFinishDistance = 600.0
	DefaultDuration       = 180 // seconds
)

// Race is the aggregate of signal, competitors and leaderboard.
// It is not safe for concurrent use; callers serialize all calls.
type Race struct {
	id             string
	signal         Signal
	competitors    []*Competitor
	byID           map[string]*Competitor
	leaderboard    *Leaderboard
	finishDistance float64
	duration       int
	remaining      int
	winMode        WinMode
	reaction       time.Duration
	elapsed        func() time.Duration
	started        bool
	finished       bool
	outcome        Outcome
	observer       Observer
	seq            int
	l              *log.Logger
}

type Option func(r *Race)

func WithID(id string) Option {
	return func(r *Race) {
		r.id = id
	}
}

func WithFinishDistance(f float64) Option {
	return func(r *Race) {
		r.finishDistance = f
	}
}

// WithDuration sets the countdown in seconds
func WithDuration(seconds int) Option {
	return func(r *Race) {
		r.duration = seconds
	}
}

func WithWinMode(m WinMode) Option {
	return func(r *Race) {
		r.winMode = m
	}
}

func WithInitialSignal(s SignalState) Option {
	return func(r *Race) {
		r.signal = NewSignal(s)
	}
}

// WithReactionWindow switches to a stricter motion predicate: on a flip to STOP only
// competitors whose last step happened less than d ago are caught moving.
// d == 0 keeps the default predicate where everyone racing is caught.
func WithReactionWindow(d time.Duration) Option {
	return func(r *Race) {
		r.reaction = d
	}
}

// WithElapsed sets the time source used to timestamp steps
func WithElapsed(fn func() time.Duration) Option {
	return func(r *Race) {
		r.elapsed = fn
	}
}

func WithObserver(o Observer) Option {
	return func(r *Race) {
		r.observer = o
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Race) {
		r.l = l
	}
}

func New(competitors []*Competitor, opts ...Option) (*Race, error) {
	ret := &Race{
		signal:         NewSignal(Stop),
		competitors:    competitors,
		byID:           make(map[string]*Competitor, len(competitors)),
		leaderboard:    NewLeaderboard(),
		finishDistance: DefaultFinishDistance,
		duration:       DefaultDuration,
		winMode:        WinModeTimer,
		observer:       nopObserver{},
		elapsed:        func() time.Duration { return 0 },
		l:              log.Default().Named("race"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if len(competitors) == 0 {
		return nil, errors.New("race needs at least one competitor")
	}
	if ret.finishDistance <= 0 {
		return nil, fmt.Errorf("invalid finish distance %v", ret.finishDistance)
	}
	if ret.reaction < 0 {
		return nil, fmt.Errorf("invalid reaction window %v", ret.reaction)
	}
	if ret.duration <= 0 {
		return nil, fmt.Errorf("invalid duration %d", ret.duration)
	}
	for _, c := range competitors {
		if _, ok := ret.byID[c.ID()]; ok {
			return nil, fmt.Errorf("duplicate competitor id %s", c.ID())
		}
		if c.Speed() <= 0 || c.Interval() <= 0 {
			return nil, fmt.Errorf("competitor %s: speed and interval must be positive", c.ID())
		}
		ret.byID[c.ID()] = c
	}
	ret.remaining = ret.duration
	return ret, nil
}

// Start marks the race as started. It returns false if the race was already started.
func (r *Race) Start() bool {
	if r.started {
		return false
	}
	r.started = true
	r.l.Info("race started",
		log.String("id", r.id),
		log.Int("competitors", len(r.competitors)),
		log.Stringer("signal", r.signal.Current()),
		log.Stringer("winMode", r.winMode))
	r.emit(model.RaceEvent{
		Kind:      model.EKRaceStarted,
		Signal:    r.signal.Current().String(),
		Remaining: r.remaining,
		Message:   r.signal.Current().Message(),
	})
	return true
}

// FlipSignal toggles the signal. On a change from GO to STOP every competitor caught
// in motion gets eliminated before any further movement is processed.
func (r *Race) FlipSignal() (SignalState, error) {
	if err := r.checkMutable(); err != nil {
		return r.signal.Current(), err
	}
	before := r.signal.Current()
	after := r.signal.Flip()
	r.l.Debug("signal flipped", log.Stringer("state", after))
	r.emit(model.RaceEvent{
		Kind:    model.EKSignalFlipped,
		Signal:  after.String(),
		Message: after.Message(),
	})
	if after == Stop {
		for _, c := range r.competitors {
			if r.inMotion(before, c) {
				r.eliminate(c, fmt.Sprintf("%s Eliminated!", c.Name()))
			}
		}
	}
	r.evaluate()
	return after, nil
}

// CountdownTick decrements the remaining seconds
func (r *Race) CountdownTick() error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	if r.remaining > 0 {
		r.remaining--
	}
	r.emit(model.RaceEvent{
		Kind:      model.EKCountdownChanged,
		Remaining: r.remaining,
	})
	r.evaluate()
	return nil
}

// MovementTick processes a movement request of the competitor.
// While the signal is STOP this is a no-op.
func (r *Race) MovementTick(id string) error {
	if err := r.checkMutable(); err != nil {
		return err
	}
	c, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCompetitor, id)
	}
	if c.Status() != Racing {
		return fmt.Errorf("%w: %s is %s", ErrNotRacing, id, c.Status())
	}
	if r.signal.Current() != Go {
		return nil
	}
	if progress := c.advance(r.elapsed()); progress >= r.finishDistance {
		r.finish(c, fmt.Sprintf("%s Finished!", c.Name()))
	}
	r.evaluate()
	return nil
}

// inMotion is the motion predicate used when the signal turns STOP.
// By default everyone still racing was moving during the green phase.
func (r *Race) inMotion(before SignalState, c *Competitor) bool {
	if before != Go || c.Status() != Racing {
		return false
	}
	if r.reaction == 0 {
		return true
	}
	last, ok := c.lastStep()
	return ok && r.elapsed()-last < r.reaction
}

func (r *Race) checkMutable() error {
	if !r.started {
		return ErrNotStarted
	}
	if r.finished {
		return ErrRaceFinished
	}
	return nil
}

func (r *Race) finish(c *Competitor, msg string) {
	c.finish()
	rank := r.leaderboard.Append(c)
	r.l.Debug("competitor finished",
		log.String("competitor", c.ID()),
		log.Int("rank", rank),
		log.Float64("progress", c.Progress()))
	r.emit(model.RaceEvent{
		Kind:           model.EKCompetitorFinished,
		CompetitorID:   c.ID(),
		CompetitorName: c.Name(),
		Progress:       c.Progress(),
		Rank:           rank,
		Message:        msg,
	})
}

func (r *Race) eliminate(c *Competitor, msg string) {
	c.eliminate()
	r.l.Debug("competitor eliminated",
		log.String("competitor", c.ID()),
		log.Float64("progress", c.Progress()))
	r.emit(model.RaceEvent{
		Kind:           model.EKCompetitorEliminated,
		CompetitorID:   c.ID(),
		CompetitorName: c.Name(),
		Progress:       c.Progress(),
		Message:        msg,
	})
}

func (r *Race) emit(e model.RaceEvent) {
	r.seq++
	e.RaceID = r.id
	e.Seq = r.seq
	r.observer.OnEvent(e)
}

func (r *Race) racing() []*Competitor {
	return lo.Filter(r.competitors, func(c *Competitor, _ int) bool {
		return c.Status() == Racing
	})
}

func (r *Race) ID() string                { return r.id }
func (r *Race) Signal() SignalState       { return r.signal.Current() }
func (r *Race) RemainingSeconds() int     { return r.remaining }
func (r *Race) Duration() int             { return r.duration }
func (r *Race) FinishDistance() float64   { return r.finishDistance }
func (r *Race) WinMode() WinMode          { return r.winMode }
func (r *Race) Started() bool             { return r.started }
func (r *Race) Finished() bool            { return r.finished }
func (r *Race) Outcome() Outcome          { return r.outcome }
func (r *Race) Leaderboard() []LeaderboardEntry {
	return r.leaderboard.Snapshot()
}

// Rank returns the leaderboard rank of the competitor
func (r *Race) Rank(id string) (int, bool) {
	return r.leaderboard.Rank(id)
}

func (r *Race) Competitor(id string) (CompetitorView, bool) {
	c, ok := r.byID[id]
	if !ok {
		return CompetitorView{}, false
	}
	return c.view(), true
}

// Competitors returns the competitors in creation order
func (r *Race) Competitors() []CompetitorView {
	return lo.Map(r.competitors, func(c *Competitor, _ int) CompetitorView {
		return c.view()
	})
}

// Snapshot is a read-only copy of the complete race state
type Snapshot struct {
	ID               string
	Signal           SignalState
	RemainingSeconds int
	Started          bool
	Finished         bool
	Outcome          Outcome
	Competitors      []CompetitorView
	Leaderboard      []LeaderboardEntry
}

func (r *Race) Snapshot() Snapshot {
	return Snapshot{
		ID:               r.id,
		Signal:           r.signal.Current(),
		RemainingSeconds: r.remaining,
		Started:          r.started,
		Finished:         r.finished,
		Outcome:          r.outcome,
		Competitors:      r.Competitors(),
		Leaderboard:      r.leaderboard.Snapshot(),
	}
}
