// Package publisher delivers audit events to a sink, synchronously by
// default or through a buffered channel when latency matters more than
// immediate durability.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "saccoflow/pkg/platform/audit"
)

// Publisher emits audit events. With an async buffer the caller never blocks
// on the sink; Close drains the buffer before returning.
type Publisher struct {
	sink   audit.Sink
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.buffer = make(chan audit.Event, size)
	}
}

// WithLogger sets a logger for delivery failures on the async path.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher over the given sink.
func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers one event. Synchronous mode returns the sink error so
// compliance callers can fail closed; async mode only fails when the buffer
// is saturated.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.CategoryOf(audit.AuditEvent(event.Action))
	}

	if p.buffer == nil {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		// Detached context: the originating request may be long gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.sink.Append(ctx, event); err != nil {
			p.logger.Error("audit event delivery failed",
				"action", event.Action,
				"record_id", event.RecordID,
				"error", err,
			)
		}
		cancel()
	}
}

// Close stops the async worker after draining buffered events. Safe to call
// multiple times; a no-op in synchronous mode.
func (p *Publisher) Close() {
	if p.buffer == nil {
		return
	}
	p.once.Do(func() {
		close(p.buffer)
	})
	p.wg.Wait()
}
