package history

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/elavarasan2006/jobrole/internal/logger"
)

// Sink stores or forwards history events (file, webhook, nats).
type Sink interface {
	Name() string
	Deliver(context.Context, *Event) error
	Close(context.Context) error
}

// Outcomes reported to an Observer.
const (
	ResultEnqueued  = "enqueued"
	ResultDropped   = "dropped"
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
)

// Observer is told about every event outcome. Delivered and failed are
// reported once per sink.
type Observer interface {
	HistoryEvent(result string)
}

// pending is an event waiting for a worker, with the span context of the
// request that produced it.
type pending struct {
	span trace.SpanContext
	ev   *Event
}

// Emitter hands prediction events to sinks off the request path. Events
// beyond the queue capacity are dropped, never waited for.
type Emitter struct {
	queue           chan pending
	sinks           []Sink
	shutdownTimeout time.Duration
	log             *zap.Logger
	observer        Observer

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// EmitterConfig controls worker and queue sizing.
type EmitterConfig struct {
	QueueSize       int
	Workers         int
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
	Observer        Observer
}

// NewEmitter starts cfg.Workers goroutines delivering to sinks.
func NewEmitter(cfg EmitterConfig, sinks []Sink) *Emitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	em := &Emitter{
		queue:           make(chan pending, cfg.QueueSize),
		sinks:           sinks,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger.OrNop(cfg.Logger),
		observer:        cfg.Observer,
	}
	for i := 0; i < cfg.Workers; i++ {
		em.wg.Add(1)
		go em.worker()
	}
	return em
}

func (e *Emitter) observe(result string) {
	if e.observer != nil {
		e.observer.HistoryEvent(result)
	}
}

// Emit queues ev without blocking. Only the span context of ctx is kept, so
// sinks can link the event to its request after the request has finished.
func (e *Emitter) Emit(ctx context.Context, ev *Event) {
	if e == nil || ev == nil {
		return
	}
	p := pending{ev: ev}
	if ctx != nil {
		p.span = trace.SpanContextFromContext(ctx)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.observe(ResultDropped)
		return
	}

	select {
	case e.queue <- p:
		e.observe(ResultEnqueued)
	default:
		e.observe(ResultDropped)
		e.log.Debug("history queue full; event dropped",
			zap.String("request_id", ev.RequestID),
			zap.String("path", ev.Path),
		)
	}
}

// Close stops accepting events, waits up to the shutdown timeout for queued
// ones, then closes every sink.
func (e *Emitter) Close(ctx context.Context) {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	waitCtx, cancel := context.WithTimeout(ctx, e.shutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-waitCtx.Done():
		e.log.Warn("history emitter closed before queue drained", zap.Int("pending", len(e.queue)))
	}

	for _, s := range e.sinks {
		if err := s.Close(waitCtx); err != nil {
			e.log.Warn("history sink close error", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for p := range e.queue {
		ctx := context.Background()
		if p.span.IsValid() {
			ctx = trace.ContextWithRemoteSpanContext(ctx, p.span)
		}
		e.deliver(ctx, p.ev)
	}
}

func (e *Emitter) deliver(ctx context.Context, ev *Event) {
	for _, s := range e.sinks {
		if err := s.Deliver(ctx, ev); err != nil {
			e.log.Warn("history sink failed",
				zap.String("sink", s.Name()),
				zap.String("event_id", ev.ID),
				zap.String("request_id", ev.RequestID),
				zap.Error(err),
			)
			e.observe(ResultFailed)
			continue
		}
		e.observe(ResultDelivered)
	}
}
