package events

import (
	"context"
	"sync"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// HandlerFunc adapts a function to interfaces.EventHandler.
type HandlerFunc struct {
	Type string
	Fn   func(ctx context.Context, event interfaces.Event) error
}

// Handle calls Fn
func (h *HandlerFunc) Handle(ctx context.Context, event interfaces.Event) error {
	return h.Fn(ctx, event)
}

// EventType returns the handled event type
func (h *HandlerFunc) EventType() string {
	return h.Type
}

// InMemoryEventBus is an in-process implementation of EventBus. It is the
// default publisher when no broker is configured.
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	mu       sync.RWMutex
	logger   interfaces.Logger
	wg       sync.WaitGroup
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger interfaces.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger,
	}
}

// Publish delivers an event to every subscriber of its type. Handler
// failures are logged and do not stop delivery.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := append([]interfaces.EventHandler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			eb.logger.Error("Event handler failed",
				interfaces.String("event_type", event.EventType()),
				interfaces.String("event_id", event.EventID()),
				interfaces.Error(err))
		}
	}

	return nil
}

// PublishAsync publishes an event asynchronously
func (eb *InMemoryEventBus) PublishAsync(ctx context.Context, event interfaces.Event) {
	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		_ = eb.Publish(context.WithoutCancel(ctx), event)
	}()
}

// Subscribe registers a handler for a specific event type
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("Event handler subscribed", interfaces.String("event_type", eventType))

	return nil
}

// Unsubscribe removes a handler for a specific event type
func (eb *InMemoryEventBus) Unsubscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h == handler {
			eb.handlers[eventType] = append(handlers[:i:i], handlers[i+1:]...)
			break
		}
	}

	return nil
}

// Start starts the event bus
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.logger.Info("Event bus started")
	return nil
}

// Stop waits for asynchronous deliveries to finish
func (eb *InMemoryEventBus) Stop() error {
	eb.wg.Wait()
	eb.logger.Info("Event bus stopped")
	return nil
}

// Close implements interfaces.EventPublisher
func (eb *InMemoryEventBus) Close() error {
	return eb.Stop()
}
