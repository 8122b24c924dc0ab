package service

import (
	"context"

	"github.com/narwhalmedia/gallery/pkg/events"
	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/transaction"
)

const (
	aggregateAlbum = "album"
	aggregatePhoto = "photo"
)

// eventEmitter publishes domain events once the surrounding transaction has
// committed. Publish failures are logged and never fail the operation.
type eventEmitter struct {
	tx        *transaction.Manager
	publisher interfaces.EventPublisher
	logger    interfaces.Logger
}

func (e eventEmitter) emit(ctx context.Context, eventType, aggregateType, aggregateID string, data map[string]interface{}) {
	if e.publisher == nil {
		return
	}
	event := events.NewEvent(ctx, eventType, aggregateType, aggregateID, data)
	e.tx.AfterCommit(ctx, func(ctx context.Context) {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.WithContext(ctx).Warn("Failed to publish event",
				interfaces.String("event_type", eventType),
				interfaces.String("aggregate_id", aggregateID),
				interfaces.Error(err))
		}
	})
}
