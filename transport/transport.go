// Package transport defines the core interfaces and types for choreo
// transports. Each backend (rabbitmq, kafka, channel) lives in its own
// sub-package and registers itself with the transport registry.
package transport

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Transport combines a publisher and subscriber pair produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder is the function signature for creating a transport from config.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports. The
// interface keeps transport packages decoupled from the full config package.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string

	// GetServiceName returns the consuming service's name, used to derive
	// per-service queue names and consumer groups.
	GetServiceName() string

	// RabbitMQ
	GetAMQPURL() string
	GetHeartbeat() time.Duration

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaConsumerGroup() string
}

// CapabilitiesProvider is implemented by transports that can report their
// capabilities.
type CapabilitiesProvider interface {
	Capabilities() Capabilities
}
