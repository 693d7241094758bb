package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/redlight-race-go/log"
)

// Server fans out messages of a source channel to all subscribers.
// When the source is closed all subscriber channels are closed after the
// pending messages were delivered.
type Server[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
	Done() <-chan struct{}
}

type server[T any] struct {
	name           string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	done           chan struct{}
	bufferSize     int
	sendTimeout    time.Duration
	numRcv         atomic.Int64
	numSnd         atomic.Int64
	numSkip        atomic.Int64
	numListener    atomic.Int64
	eventKey       string
	l              *log.Logger
}

type Option[T any] func(*server[T])

// WithTelemetry sets the event attribute of the registered gauges
func WithTelemetry[T any](eventKey string) Option[T] {
	return func(b *server[T]) {
		b.eventKey = eventKey
	}
}

// WithBufferSize sets the capacity of each subscriber channel
func WithBufferSize[T any](size int) Option[T] {
	return func(b *server[T]) {
		b.bufferSize = size
	}
}

// WithSendTimeout drops a message for a subscriber that did not accept it in time.
// 0 waits until the subscriber is ready.
func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(b *server[T]) {
		b.sendTimeout = d
	}
}

func WithLogger[T any](l *log.Logger) Option[T] {
	return func(b *server[T]) {
		b.l = l
	}
}

func NewServer[T any](name string, source <-chan T, opts ...Option[T]) Server[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &server[T]{
		name:           name,
		eventKey:       name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		bufferSize:     64,
		l:              log.Default().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setupMetrics()
	go b.serve()
	return b
}

// Subscribe returns a new subscriber channel. After the server is done the
// returned channel is already closed.
func (b *server[T]) Subscribe() <-chan T {
	ch := make(chan T, b.bufferSize)
	select {
	case b.addListener <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

func (b *server[T]) CancelSubscription(ch <-chan T) {
	select {
	case b.removeListener <- ch:
	case <-b.done:
	}
}

func (b *server[T]) Close() {
	b.l.Debug("closing broadcast server",
		log.String("name", b.name),
		log.Int64("rcv", b.numRcv.Load()),
		log.Int64("snd", b.numSnd.Load()),
		log.Int64("skip", b.numSkip.Load()))
	b.cancel()
	<-b.done
}

func (b *server[T]) Done() <-chan struct{} {
	return b.done
}

func (b *server[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("rlr.broadcast.%s", b.name))
	register := func(metricName, desc string, value *atomic.Int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load(),
					metric.WithAttributes(
						attribute.String("name", b.name),
						attribute.String("event", b.eventKey),
					),
				)
				return nil
			})); err != nil {
			b.l.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
	}
	register("rlr.broadcast.rcv", "Number of received messages", &b.numRcv)
	register("rlr.broadcast.snd", "Number of sent messages", &b.numSnd)
	register("rlr.broadcast.skip", "Number of skipped messages", &b.numSkip)
	register("rlr.broadcast.listener", "Number of listeners", &b.numListener)
}

//nolint:cyclop // single select loop
func (b *server[T]) serve() {
	defer func() {
		for _, listener := range b.listeners {
			close(listener)
		}
		b.listeners = nil
		b.numListener.Store(0)
		close(b.done)
		b.l.Debug("broadcast server done", log.String("name", b.name))
	}()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
			b.numListener.Add(1)
		case ch := <-b.removeListener:
			for i, listener := range b.listeners {
				if listener == ch {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					b.numListener.Add(-1)
					close(listener)
					break
				}
			}
		case msg, ok := <-b.source:
			if !ok {
				return
			}
			b.numRcv.Add(1)
			for _, listener := range b.listeners {
				b.send(listener, msg)
			}
		}
	}
}

func (b *server[T]) send(listener chan T, msg T) {
	if b.sendTimeout == 0 {
		select {
		case listener <- msg:
			b.numSnd.Add(1)
		case <-b.ctx.Done():
			b.numSkip.Add(1)
		}
		return
	}
	select {
	case listener <- msg:
		b.numSnd.Add(1)
	case <-time.After(b.sendTimeout):
		b.numSkip.Add(1)
	}
}
