package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/domain/shared"
)

var (
	// ErrBusStopped is returned by Publish after Stop, or before Start when a worker pool is configured
	ErrBusStopped = errors.New("event: bus stopped")
	// ErrQueueFull is returned when the dispatch queue cannot take more events
	ErrQueueFull = errors.New("event: dispatch queue full")
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// Option configures an InMemoryEventBus
type Option func(*InMemoryEventBus)

// WithWorkerPool dispatches events on a fixed set of workers fed by a
// bounded queue. Publish returns as soon as the event is queued.
func WithWorkerPool(workers, queueSize int) Option {
	return func(b *InMemoryEventBus) {
		if workers <= 0 {
			workers = DefaultWorkers
		}
		if queueSize <= 0 {
			queueSize = DefaultQueueSize
		}
		b.workers = workers
		b.queueSize = queueSize
	}
}

// delivery is one event bound to the handlers subscribed when it was published
type delivery struct {
	ctx      context.Context
	event    shared.DomainEvent
	handlers []shared.EventHandler
}

// InMemoryEventBus implements shared.EventBus with in-process pub/sub.
// Without a worker pool, Publish runs handlers on the caller's goroutine.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	workers   int
	queueSize int

	mu      sync.RWMutex
	queue   chan delivery
	running bool
	stopped bool
	wg      sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...Option) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *InMemoryEventBus) pooled() bool {
	return b.workers > 0
}

// Publish delivers events to their handlers. Handler errors are logged, never
// returned, so one failing subscriber cannot block the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped || (b.pooled() && !b.running) {
		return ErrBusStopped
	}

	for _, event := range events {
		handlers := b.registry.GetHandlers(event.EventType())
		if len(handlers) == 0 {
			b.logger.Debug("No handlers for event", zap.String("event_type", event.EventType()))
			continue
		}

		if !b.pooled() {
			b.deliver(delivery{ctx: ctx, event: event, handlers: handlers})
			continue
		}

		// the publisher's request may finish before a worker picks the event up
		d := delivery{ctx: context.WithoutCancel(ctx), event: event, handlers: handlers}
		select {
		case b.queue <- d:
		default:
			b.logger.Warn("Dispatch queue full, dropping event",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_key", event.AggregateKey()),
				zap.Int("queue_size", b.queueSize),
			)
			return fmt.Errorf("%w: %s %s", ErrQueueFull, event.EventType(), event.AggregateKey())
		}
	}
	return nil
}

// Subscribe registers a handler. Without explicit types the handler's own EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker pool. It is a no-op for a synchronous bus.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return nil
	}
	b.stopped = false
	b.running = true

	if b.pooled() {
		b.queue = make(chan delivery, b.queueSize)
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.work(b.queue)
		}
	}
	b.logger.Info("Event bus started",
		zap.Int("workers", b.workers),
		zap.Int("queue_size", b.queueSize),
	)
	return nil
}

// Stop rejects new events, lets the workers drain the queue and waits for
// them or for ctx to expire
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopped = true
	wasRunning := b.running
	b.running = false
	if wasRunning && b.queue != nil {
		close(b.queue)
		b.queue = nil
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) work(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		b.deliver(d)
	}
}

func (b *InMemoryEventBus) deliver(d delivery) {
	for _, handler := range d.handlers {
		if err := safeHandle(d.ctx, handler, d.event); err != nil {
			b.logger.Error("Handler failed to process event",
				zap.String("event_type", d.event.EventType()),
				zap.String("event_id", d.event.EventID().String()),
				zap.String("aggregate_key", d.event.AggregateKey()),
				zap.Error(err),
			)
		}
	}
}

// safeHandle converts a handler panic into an error
func safeHandle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
