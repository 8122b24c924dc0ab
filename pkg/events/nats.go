package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
)

// NATSPublisher publishes events to a JetStream stream.
type NATSPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    NATSConfig
	logger *zap.Logger
}

// NewNATSPublisher connects to NATS and makes sure the event stream exists.
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	logger = logger.Named("nats")
	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.Timeout(cfg.ConnectTimeout),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "Gallery domain events",
		Subjects:    []string{cfg.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Discard:     jetstream.DiscardOld,
		Replicas:    1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create event stream: %w", err)
	}

	logger.Info("NATS publisher initialized",
		zap.String("url", cfg.URL),
		zap.String("stream", cfg.Stream))

	return &NATSPublisher{nc: nc, js: js, cfg: cfg, logger: logger}, nil
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.cfg.SubjectPrefix + "." + eventType
}

// Publish implements interfaces.EventPublisher.
func (p *NATSPublisher) Publish(ctx context.Context, event interfaces.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	subject := p.Subject(event.EventType())
	ack, err := p.js.Publish(pubCtx, subject, data, jetstream.WithMsgID(event.EventID()))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("event published",
		zap.String("event_id", event.EventID()),
		zap.String("subject", subject),
		zap.Uint64("sequence", ack.Sequence))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
