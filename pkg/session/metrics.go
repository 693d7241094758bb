package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

type raceMetrics struct {
	events       metric.Int64Counter
	eliminations metric.Int64Counter
	finishes     metric.Int64Counter
	races        metric.Int64Counter
}

func newRaceMetrics(mp metric.MeterProvider, l *log.Logger) *raceMetrics {
	meter := mp.Meter("rlr.session")
	ret := &raceMetrics{}
	var err error
	create := func(name, desc string) metric.Int64Counter {
		var c metric.Int64Counter
		if c, err = meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}")); err != nil {
			l.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
		}
		return c
	}
	ret.events = create("rlr.race.events", "Number of race events by kind")
	ret.eliminations = create("rlr.race.eliminations", "Number of eliminated competitors")
	ret.finishes = create("rlr.race.finishes", "Number of competitors reaching the finish")
	ret.races = create("rlr.race.finished", "Number of finished races by reason")
	return ret
}

func (m *raceMetrics) record(ctx context.Context, e *model.RaceEvent) {
	if m.events == nil {
		return
	}
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", e.Kind.String())))
	switch e.Kind {
	case model.EKCompetitorEliminated:
		m.eliminations.Add(ctx, 1)
	case model.EKCompetitorFinished:
		m.finishes.Add(ctx, 1)
	case model.EKRaceFinished:
		m.races.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", e.Reason)))
	case model.EKUnknown, model.EKRaceStarted, model.EKSignalFlipped, model.EKCountdownChanged:
	}
}
