// Package rabbitmq provides the RabbitMQ/AMQP transport for choreo.
//
// Topics map onto AMQP routing keys. Messages are published to a durable
// topic exchange derived from the routing key prefix, and every consuming
// service binds its own durable queue so that each service receives its
// own copy of an event.
package rabbitmq

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"github.com/smartcowork/choreo/internal/bus/metadata"
	"github.com/smartcowork/choreo/internal/events"
	"github.com/smartcowork/choreo/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "rabbitmq"

// connectMaxElapsed bounds the initial connection retry loop. Reconnects
// after a successful connect are handled by the connection wrapper itself.
const connectMaxElapsed = 15 * time.Second

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

// ConnectBackoff allows overriding the initial connection retry policy for testing.
var ConnectBackoff = func(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectMaxElapsed
	return backoff.WithContext(policy, ctx)
}

func init() {
	Register()
}

// Register registers the RabbitMQ transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RabbitMQCapabilities)
}

// PubSubConfig builds the watermill-amqp configuration for a consuming
// service. Queues are durable and named per service, exchanges are topic
// exchanges shared by all services, and the AMQP routing key is the topic
// itself so the broker fans events out by name.
func PubSubConfig(amqpURL, serviceName string, heartbeat time.Duration) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(amqpURL, func(topic string) string {
		return events.QueueName(serviceName, topic)
	})

	cfg.Exchange.GenerateName = events.ExchangeFor
	cfg.Exchange.Type = "topic"
	cfg.QueueBind.GenerateRoutingKey = func(topic string) string {
		return topic
	}
	cfg.Publish.GenerateRoutingKey = func(topic string) string {
		return topic
	}

	cfg.Marshaler = amqp.DefaultMarshaler{
		PostprocessPublishing: stampPublishingTimestamp,
	}

	cfg.Connection = amqp.ConnectionConfig{
		AmqpURI:   amqpURL,
		Reconnect: amqp.DefaultReconnectConfig(),
		AmqpConfig: &amqp091.Config{
			Heartbeat: heartbeat,
		},
	}

	return cfg
}

// stampPublishingTimestamp mirrors the unix-seconds timestamp header into
// the AMQP timestamp property so broker tooling sees the publish time
// without decoding headers. Messages without the header get the wall clock.
func stampPublishingTimestamp(p amqp091.Publishing) amqp091.Publishing {
	if raw, ok := p.Headers[metadata.KeyTimestamp].(string); ok {
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			p.Timestamp = time.Unix(secs, 0).UTC()
			return p
		}
	}
	p.Timestamp = time.Now().UTC()
	return p
}

// Build creates a new RabbitMQ transport.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	amqpConfig := PubSubConfig(cfg.GetAMQPURL(), cfg.GetServiceName(), cfg.GetHeartbeat())

	conn, err := connect(ctx, amqpConfig.Connection, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// connect dials the broker, retrying with exponential backoff so that a
// service starting before its broker does not immediately give up.
func connect(ctx context.Context, connCfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return backoff.RetryWithData(func() (*amqp.ConnectionWrapper, error) {
		conn, err := ConnectionFactory(connCfg, logger)
		if err != nil {
			logger.Info("broker not reachable yet, retrying", watermill.LogFields{
				"err": err.Error(),
			})
			return nil, err
		}
		return conn, nil
	}, ConnectBackoff(ctx))
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}
