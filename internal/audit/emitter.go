// Package audit reports transaction lifecycle events off the request path.
// Delivery is best effort: nothing here can delay or fail a transfer.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/models/events"
)

const (
	DefaultWorkers     = 4
	DefaultQueueSize   = 256
	DefaultSinkTimeout = 5 * time.Second
)

// Sink delivers one event to a destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event events.AuditEvent) error
}

// Options tunes the worker pool.
type Options struct {
	Workers     int
	QueueSize   int
	SinkTimeout time.Duration
}

// Emitter queues events and fans them out to every sink from a fixed pool
// of workers.
type Emitter struct {
	sinks   []Sink
	queue   chan events.AuditEvent
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEmitter(logger zerolog.Logger, opts Options, sinks ...Sink) *Emitter {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = DefaultSinkTimeout
	}

	e := &Emitter{
		sinks:   sinks,
		queue:   make(chan events.AuditEvent, opts.QueueSize),
		timeout: opts.SinkTimeout,
		logger:  logger.With().Str("component", "audit_emitter").Logger(),
		now:     time.Now,
	}

	for i := 0; i < opts.Workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// Emit enqueues an event and returns immediately. When the queue is full
// or the emitter is closed the event is dropped and logged.
func (e *Emitter) Emit(eventType string, details map[string]any, userID string) {
	event := events.AuditEvent{
		EventType:     eventType,
		ServiceSource: events.ServiceSource,
		UserID:        userID,
		Details:       details,
		Timestamp:     e.now().UTC(),
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.logger.Warn().Str("eventType", eventType).Msg("audit emitter closed, event dropped")
		return
	}

	select {
	case e.queue <- event:
	default:
		e.logger.Warn().Str("eventType", eventType).Msg("audit queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to end, whichever comes first.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	for event := range e.queue {
		e.deliver(event)
	}
}

func (e *Emitter) deliver(event events.AuditEvent) {
	for _, sink := range e.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		err := sink.Deliver(ctx, event)
		cancel()
		if err != nil {
			e.logger.Warn().Err(err).
				Bool("timeout", errors.Is(err, context.DeadlineExceeded)).
				Str("sink", sink.Name()).
				Str("eventType", event.EventType).
				Msg("audit delivery failed")
		}
	}
}

var _ interfaces.AuditEmitter = (*Emitter)(nil)
