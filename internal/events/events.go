package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Event represents a domain event.
type Event interface {
	GetEventID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetUserID() *int64
	GetMetadata() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    *int64                 `json:"user_id,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (e *BaseEvent) GetEventID() string   { return e.EventID }
func (e *BaseEvent) GetEventType() string { return e.EventType }

func (e *BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func (e *BaseEvent) GetUserID() *int64 { return e.UserID }

func (e *BaseEvent) GetMetadata() map[string]interface{} { return e.Metadata }

// GenerateEventID returns a unique event identifier.
func GenerateEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return id.String()
}

// EventBus defines the event publishing and subscription interface.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event) error

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() error
	Stats() *EventBusStats
}

// EventHandler processes one event.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error
	GetHandlerID() string
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc struct {
	ID   string
	Func func(ctx context.Context, event Event) error
}

func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Func(ctx, event)
}

func (f EventHandlerFunc) GetHandlerID() string { return f.ID }

// EventBusStats represents event bus statistics.
type EventBusStats struct {
	EventsPublished int64         `json:"events_published"`
	EventsProcessed int64         `json:"events_processed"`
	EventsFailed    int64         `json:"events_failed"`
	HandlersCount   int           `json:"handlers_count"`
	QueueDepth      int           `json:"queue_depth"`
	Uptime          time.Duration `json:"uptime"`
}

// EventBusConfig holds configuration for the event bus.
type EventBusConfig struct {
	BufferSize     int           `json:"buffer_size"`
	WorkerCount    int           `json:"worker_count"`
	HandlerTimeout time.Duration `json:"handler_timeout"`
}

// DefaultEventBusConfig returns default configuration.
func DefaultEventBusConfig() *EventBusConfig {
	return &EventBusConfig{
		BufferSize:     1000,
		WorkerCount:    5,
		HandlerTimeout: 30 * time.Second,
	}
}

// inMemoryEventBus implements EventBus with a buffered queue and a
// fixed worker pool.
type inMemoryEventBus struct {
	mu             sync.RWMutex
	handlers       map[string][]EventHandler
	eventQueue     chan eventMessage
	logger         *zap.Logger
	stats          EventBusStats
	startTime      time.Time
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	bufferSize     int
	workerCount    int
	handlerTimeout time.Duration
}

type eventMessage struct {
	ctx   context.Context
	event Event
}

// NewEventBus creates a new in-memory event bus.
func NewEventBus(config *EventBusConfig, logger *zap.Logger) EventBus {
	if config == nil {
		config = DefaultEventBusConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &inMemoryEventBus{
		handlers:       make(map[string][]EventHandler),
		eventQueue:     make(chan eventMessage, config.BufferSize),
		logger:         logger,
		startTime:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
		bufferSize:     config.BufferSize,
		workerCount:    config.WorkerCount,
		handlerTimeout: config.HandlerTimeout,
	}
}

// Publish delivers an event to all subscribed handlers synchronously.
func (b *inMemoryEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	b.logger.Debug("Publishing event",
		zap.String("event_id", event.GetEventID()),
		zap.String("event_type", event.GetEventType()),
	)

	if err := b.processEvent(ctx, event); err != nil {
		b.logger.Error("Failed to process event",
			zap.String("event_id", event.GetEventID()),
			zap.String("event_type", event.GetEventType()),
			zap.Error(err),
		)
		b.countFailed()
		return err
	}

	b.countPublished()
	return nil
}

// PublishAsync enqueues an event for the worker pool.
func (b *inMemoryEventBus) PublishAsync(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	select {
	case b.eventQueue <- eventMessage{ctx: ctx, event: event}:
		b.countPublished()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("event queue is full")
	}
}

// Subscribe registers a handler for an event type.
func (b *inMemoryEventBus) Subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.stats.HandlersCount++

	b.logger.Info("Handler subscribed",
		zap.String("event_type", eventType),
		zap.String("handler_id", handler.GetHandlerID()),
	)
	return nil
}

// Unsubscribe removes a handler for an event type.
func (b *inMemoryEventBus) Unsubscribe(eventType string, handler EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.GetHandlerID() == handler.GetHandlerID() {
			b.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			b.stats.HandlersCount--

			b.logger.Info("Handler unsubscribed",
				zap.String("event_type", eventType),
				zap.String("handler_id", handler.GetHandlerID()),
			)
			return nil
		}
	}
	return fmt.Errorf("handler not found")
}

// Start launches the worker goroutines.
func (b *inMemoryEventBus) Start(ctx context.Context) error {
	b.logger.Info("Starting event bus", zap.Int("worker_count", b.workerCount))

	for i := 0; i < b.workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return nil
}

// Stop drains the workers, bounded by the caller's context.
func (b *inMemoryEventBus) Stop(ctx context.Context) error {
	b.logger.Info("Stopping event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus stopped")
	case <-ctx.Done():
		b.logger.Warn("Event bus stop timeout")
		return ctx.Err()
	}
	return nil
}

// Health reports whether the bus is running and the queue has headroom.
func (b *inMemoryEventBus) Health() error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is stopped")
	default:
	}

	queueDepth := len(b.eventQueue)
	if queueDepth > b.bufferSize*80/100 {
		return fmt.Errorf("event queue is %d%% full", queueDepth*100/b.bufferSize)
	}
	return nil
}

// Stats returns event bus statistics.
func (b *inMemoryEventBus) Stats() *EventBusStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := b.stats
	stats.QueueDepth = len(b.eventQueue)
	stats.Uptime = time.Since(b.startTime)
	return &stats
}

func (b *inMemoryEventBus) worker(workerID int) {
	defer b.wg.Done()

	b.logger.Debug("Event bus worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case msg := <-b.eventQueue:
			if err := b.processEvent(msg.ctx, msg.event); err != nil {
				b.logger.Error("Failed to process event",
					zap.Int("worker_id", workerID),
					zap.String("event_id", msg.event.GetEventID()),
					zap.String("event_type", msg.event.GetEventType()),
					zap.Error(err),
				)
				b.countFailed()
			} else {
				b.countProcessed()
			}
		case <-b.ctx.Done():
			b.logger.Debug("Event bus worker stopped", zap.Int("worker_id", workerID))
			return
		}
	}
}

// processEvent runs every handler for the event. A failing handler does
// not stop the rest; failures are collected and returned together.
func (b *inMemoryEventBus) processEvent(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.handlers[event.GetEventType()]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Debug("No handlers found for event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
		)
		return nil
	}

	var result *multierror.Error
	for _, handler := range handlers {
		if err := b.executeHandler(ctx, handler, event); err != nil {
			result = multierror.Append(result, fmt.Errorf("handler %s: %w", handler.GetHandlerID(), err))
		}
	}
	return result.ErrorOrNil()
}

func (b *inMemoryEventBus) executeHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("handler_id", handler.GetHandlerID()),
				zap.String("event_type", event.GetEventType()),
				zap.Any("panic", r),
			)
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	handlerCtx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
	defer cancel()

	return handler.Handle(handlerCtx, event)
}

func (b *inMemoryEventBus) countPublished() {
	b.mu.Lock()
	b.stats.EventsPublished++
	b.mu.Unlock()
}

func (b *inMemoryEventBus) countProcessed() {
	b.mu.Lock()
	b.stats.EventsProcessed++
	b.mu.Unlock()
}

func (b *inMemoryEventBus) countFailed() {
	b.mu.Lock()
	b.stats.EventsFailed++
	b.mu.Unlock()
}
