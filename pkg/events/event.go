package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/narwhalmedia/gallery/pkg/identity"
)

// DomainEvent is the event envelope published by the gallery services.
type DomainEvent struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Time    int64                  `json:"timestamp"`
	AggType string                 `json:"aggregate_type"`
	AggID   string                 `json:"aggregate_id"`
	ActorID string                 `json:"actor_id,omitempty"`
	Data    map[string]interface{} `json:"data"`
}

// NewEvent creates a new event. The acting user is taken from ctx.
func NewEvent(ctx context.Context, eventType, aggregateType, aggregateID string, data map[string]interface{}) *DomainEvent {
	return &DomainEvent{
		ID:      uuid.NewString(),
		Type:    eventType,
		Time:    time.Now().UnixNano(),
		AggType: aggregateType,
		AggID:   aggregateID,
		ActorID: identity.ActorID(ctx),
		Data:    data,
	}
}

// EventID returns the unique id of the event
func (e *DomainEvent) EventID() string {
	return e.ID
}

// EventType returns the type of the event
func (e *DomainEvent) EventType() string {
	return e.Type
}

// Timestamp returns when the event occurred
func (e *DomainEvent) Timestamp() int64 {
	return e.Time
}

// AggregateID returns the ID of the aggregate that produced the event
func (e *DomainEvent) AggregateID() string {
	return e.AggID
}

// AggregateType returns the kind of aggregate that produced the event
func (e *DomainEvent) AggregateType() string {
	return e.AggType
}
