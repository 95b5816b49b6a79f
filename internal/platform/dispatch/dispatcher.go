// Package dispatch delivers records to sinks in the background. Delivery is
// best effort: Submit never blocks the caller, failures are logged and
// counted, and nothing is retried.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// ErrQueueFull is returned by Submit when the record was dropped.
var ErrQueueFull = errors.New("dispatch queue full")

// Sink receives records.
type Sink[T any] interface {
	Name() string
	Write(ctx context.Context, rec T) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc[T any] struct {
	SinkName string
	Fn       func(ctx context.Context, rec T) error
}

func (s SinkFunc[T]) Name() string                          { return s.SinkName }
func (s SinkFunc[T]) Write(ctx context.Context, rec T) error { return s.Fn(ctx, rec) }

// Observer is told about delivery outcomes.
type Observer interface {
	Delivered(sink string)
	Failed(sink string)
	Dropped()
}

type nopObserver struct{}

func (nopObserver) Delivered(string) {}
func (nopObserver) Failed(string)    {}
func (nopObserver) Dropped()         {}

// Dispatcher fans each submitted record out to every sink.
type Dispatcher[T any] struct {
	sinks        []Sink[T]
	queue        chan T
	logger       zerolog.Logger
	observer     Observer
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	workers      int
	queueSize    int
	writeTimeout time.Duration
	observer     Observer
}

// WithWorkers sets the number of delivery goroutines.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithQueueSize bounds the number of pending records.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithWriteTimeout bounds a single sink write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithObserver reports delivery outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// New starts a Dispatcher delivering to sinks.
func New[T any](logger zerolog.Logger, sinks []Sink[T], opts ...Option) *Dispatcher[T] {
	cfg := config{workers: 4, queueSize: 256, writeTimeout: 15 * time.Second, observer: nopObserver{}}
	for _, o := range opts {
		o(&cfg)
	}
	d := &Dispatcher[T]{
		sinks:        sinks,
		queue:        make(chan T, cfg.queueSize),
		logger:       logger.With().Str("component", "dispatch").Logger(),
		observer:     cfg.observer,
		writeTimeout: cfg.writeTimeout,
	}
	for i := 0; i < cfg.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Submit enqueues rec and returns immediately.
func (d *Dispatcher[T]) Submit(rec T) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- rec:
		return nil
	default:
		d.observer.Dropped()
		d.logger.Warn().Int("queue_size", cap(d.queue)).Msg("queue full; record dropped")
		return ErrQueueFull
	}
}

// Pending returns the number of queued records.
func (d *Dispatcher[T]) Pending() int { return len(d.queue) }

// Close stops accepting records and waits for queued ones to be delivered,
// or for ctx to end.
func (d *Dispatcher[T]) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher[T]) run() {
	defer d.wg.Done()
	for rec := range d.queue {
		d.deliver(rec)
	}
}

func (d *Dispatcher[T]) deliver(rec T) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
		err := s.Write(ctx, rec)
		cancel()
		if err != nil {
			d.observer.Failed(s.Name())
			d.logger.Warn().Err(err).Str("sink", s.Name()).Msg("delivery failed")
			continue
		}
		d.observer.Delivered(s.Name())
	}
}
