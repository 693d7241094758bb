package race

import (
	"fmt"
	"math/rand/v2"
	"time"
)

type Status int

const (
	Racing Status = iota
	Finished
	Eliminated
)

func (s Status) String() string {
	switch s {
	case Racing:
		return "RACING"
	case Finished:
		return "FINISHED"
	case Eliminated:
		return "ELIMINATED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen from s
func (s Status) Terminal() bool {
	return s == Finished || s == Eliminated
}

// CompetitorSettings defines the ranges speed and movement interval are drawn from.
type CompetitorSettings struct {
	MinSpeed    float64
	MaxSpeed    float64
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultCompetitorSettings matches the classic game: speed in [3,7), one step every
// 500ms to 1500ms.
var DefaultCompetitorSettings = CompetitorSettings{
	MinSpeed:    3,
	MaxSpeed:    7,
	MinInterval: 500 * time.Millisecond,
	MaxInterval: 1500 * time.Millisecond,
}

type Competitor struct {
	id       string
	name     string
	speed    float64
	interval time.Duration
	progress float64
	status   Status
	stepped  bool
	stepAt   time.Duration
}

func NewCompetitor(id, name string, speed float64, interval time.Duration) *Competitor {
	if name == "" {
		name = id
	}
	return &Competitor{
		id:       id,
		name:     name,
		speed:    speed,
		interval: interval,
		status:   Racing,
	}
}

// GenerateCompetitors creates n competitors named "Player 1".."Player n" with ids
// "C1".."Cn". Speed and interval are drawn once from rng.
func GenerateCompetitors(n int, rng *rand.Rand, s CompetitorSettings) []*Competitor {
	ret := make([]*Competitor, 0, n)
	for i := range n {
		ret = append(ret, NewCompetitor(
			fmt.Sprintf("C%d", i+1),
			fmt.Sprintf("Player %d", i+1),
			DrawSpeed(rng, s),
			DrawInterval(rng, s),
		))
	}
	return ret
}

func DrawSpeed(rng *rand.Rand, s CompetitorSettings) float64 {
	return s.MinSpeed + rng.Float64()*(s.MaxSpeed-s.MinSpeed)
}

func DrawInterval(rng *rand.Rand, s CompetitorSettings) time.Duration {
	span := int64(s.MaxInterval - s.MinInterval)
	if span <= 0 {
		return s.MinInterval
	}
	return s.MinInterval + time.Duration(rng.Int64N(span))
}

func (c *Competitor) ID() string              { return c.id }
func (c *Competitor) Name() string            { return c.name }
func (c *Competitor) Speed() float64          { return c.speed }
func (c *Competitor) Interval() time.Duration { return c.interval }
func (c *Competitor) Progress() float64       { return c.progress }
func (c *Competitor) Status() Status          { return c.status }

func (c *Competitor) advance(at time.Duration) float64 {
	c.mustBeRacing("advance")
	c.progress += c.speed
	c.stepped = true
	c.stepAt = at
	return c.progress
}

func (c *Competitor) lastStep() (time.Duration, bool) {
	return c.stepAt, c.stepped
}

func (c *Competitor) finish() {
	c.mustBeRacing("finish")
	c.status = Finished
}

func (c *Competitor) eliminate() {
	c.mustBeRacing("eliminate")
	c.status = Eliminated
}

func (c *Competitor) mustBeRacing(op string) {
	if c.status != Racing {
		panic(fmt.Sprintf("race: %s on competitor %s with status %s", op, c.id, c.status))
	}
}

func (c *Competitor) view() CompetitorView {
	return CompetitorView{
		ID:       c.id,
		Name:     c.name,
		Speed:    c.speed,
		Interval: c.interval,
		Progress: c.progress,
		Status:   c.status,
	}
}

// CompetitorView is a read-only copy of a competitor's state
type CompetitorView struct {
	ID       string
	Name     string
	Speed    float64
	Interval time.Duration
	Progress float64
	Status   Status
}
