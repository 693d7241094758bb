// Package nats publishes race events and results to NATS.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/redlight-race-go/log"
	"github.com/mpapenbr/redlight-race-go/pkg/model"
)

const (
	DefaultSubjectPrefix = "rlr.race"
	DefaultResultBucket  = "rlr_results"
)

type (
	// Conn is the part of *nats.Conn used for publishing
	Conn interface {
		Publish(subj string, data []byte) error
		FlushTimeout(timeout time.Duration) error
	}
	// ResultStore keeps the latest result per race, usually a JetStream KeyValue bucket
	ResultStore interface {
		Put(ctx context.Context, key string, value []byte) (uint64, error)
	}

	Publisher struct {
		ctx     context.Context
		conn    Conn
		store   ResultStore
		prefix  string
		l       *log.Logger
		numSent int
		numErr  int
	}
	Option func(*Publisher)
)

func WithContext(ctx context.Context) Option {
	return func(p *Publisher) {
		p.ctx = ctx
	}
}

func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		p.prefix = prefix
	}
}

func WithResultStore(store ResultStore) Option {
	return func(p *Publisher) {
		p.store = store
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// Connect opens a named connection to the NATS server at url
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("rlr"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
}

// OpenResultBucket creates or updates the KeyValue bucket used for results
func OpenResultBucket(ctx context.Context, nc *nats.Conn, bucket string) (
	jetstream.KeyValue, error,
) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}
	return js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "final results of red light races",
		History:     1,
	})
}

func NewPublisher(conn Conn, opts ...Option) *Publisher {
	ret := &Publisher{
		ctx:    context.Background(),
		conn:   conn,
		prefix: DefaultSubjectPrefix,
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (p *Publisher) EventsSubject(raceID string) string {
	return fmt.Sprintf("%s.%s.events", p.prefix, raceID)
}

func (p *Publisher) ResultSubject(raceID string) string {
	return fmt.Sprintf("%s.%s.result", p.prefix, raceID)
}

func (p *Publisher) PublishEvent(e *model.RaceEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.publish(p.EventsSubject(e.RaceID), data)
}

// PublishResult sends the result and stores it in the result store if configured
func (p *Publisher) PublishResult(res *model.RaceResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if err := p.publish(p.ResultSubject(res.ID), data); err != nil {
		return err
	}
	if p.store != nil {
		if _, err := p.store.Put(p.ctx, res.ID, data); err != nil {
			return fmt.Errorf("store result %s: %w", res.ID, err)
		}
	}
	return p.Flush()
}

// Consume publishes events until ch is closed. Failures are logged and counted.
func (p *Publisher) Consume(ch <-chan model.RaceEvent) {
	for e := range ch {
		if err := p.PublishEvent(&e); err != nil {
			p.l.Warn("could not publish event",
				log.String("race", e.RaceID),
				log.Int("seq", e.Seq),
				log.ErrorField(err))
		}
	}
	p.l.Debug("event stream done",
		log.Int("sent", p.numSent),
		log.Int("errors", p.numErr))
}

func (p *Publisher) Flush() error {
	return p.conn.FlushTimeout(5 * time.Second)
}

func (p *Publisher) Stats() (sent, failed int) {
	return p.numSent, p.numErr
}

func (p *Publisher) publish(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		p.numErr++
		return err
	}
	p.numSent++
	p.l.Debug("published", log.String("subject", subject), log.Int("bytes", len(data)))
	return nil
}
