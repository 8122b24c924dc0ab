package events

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/narwhalmedia/gallery/pkg/interfaces"
	"github.com/narwhalmedia/gallery/pkg/logger"
)

// Publisher drivers.
const (
	DriverNone  = "none"
	DriverLocal = "local"
	DriverNATS  = "nats"
	DriverKafka = "kafka"
)

// Config selects the event publisher.
type Config struct {
	Driver string      `koanf:"driver" validate:"oneof=none local nats kafka"`
	NATS   NATSConfig  `koanf:"nats"`
	Kafka  KafkaConfig `koanf:"kafka"`
}

// NATSConfig configures the JetStream publisher.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	ClientID       string        `koanf:"client_id"`
	Stream         string        `koanf:"stream"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxAge         time.Duration `koanf:"max_age"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	MaxReconnect   int           `koanf:"max_reconnect"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers    []string `koanf:"brokers"`
	Topic      string   `koanf:"topic"`
	ClientID   string   `koanf:"client_id"`
	MaxRetries int      `koanf:"max_retries"`
}

// DefaultConfig returns the local in-process publisher configuration.
func DefaultConfig() Config {
	return Config{
		Driver: DriverLocal,
		NATS: NATSConfig{
			URL:            "nats://localhost:4222",
			ClientID:       "gallery",
			Stream:         "GALLERY_EVENTS",
			SubjectPrefix:  "gallery",
			MaxAge:         7 * 24 * time.Hour,
			ConnectTimeout: 2 * time.Second,
			MaxReconnect:   10,
			ReconnectWait:  2 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    []string{"localhost:9092"},
			Topic:      "gallery.events",
			ClientID:   "gallery",
			MaxRetries: 5,
		},
	}
}

// NewPublisher builds the publisher selected by cfg.Driver.
func NewPublisher(ctx context.Context, cfg Config, log *zap.Logger) (interfaces.EventPublisher, error) {
	switch cfg.Driver {
	case DriverNATS:
		return NewNATSPublisher(ctx, cfg.NATS, log)
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka, log)
	case DriverLocal, "":
		return NewInMemoryEventBus(logger.NewFromZap(log.Named("events"))), nil
	case DriverNone:
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, interfaces.Event) error { return nil }

func (NopPublisher) Close() error { return nil }
