package interfaces

import (
	"context"
)

// Event represents a domain event.
type Event interface {
	// EventID uniquely identifies the event; brokers use it for deduplication
	EventID() string

	// EventType returns the type of the event
	EventType() string

	// Timestamp returns when the event occurred
	Timestamp() int64

	// AggregateID returns the ID of the aggregate that produced the event
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event Event) error

	// EventType returns the type of events this handler processes
	EventType() string
}

// EventPublisher delivers events to a broker.
type EventPublisher interface {
	// Publish sends the event and waits for the broker to accept it
	Publish(ctx context.Context, event Event) error

	// Close flushes and releases the broker connection
	Close() error
}

// EventBus provides in-process pub/sub for domain events.
type EventBus interface {
	EventPublisher

	// PublishAsync publishes an event asynchronously
	PublishAsync(ctx context.Context, event Event)

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler for a specific event type
	Unsubscribe(eventType string, handler EventHandler) error

	// Start starts the event bus
	Start(ctx context.Context) error

	// Stop stops the event bus
	Stop() error
}
