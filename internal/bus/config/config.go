package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config groups the messaging settings required to initialise the event bus.
// Each transport only uses the keys that are relevant to it.
type Config struct {
	// Enabled switches the whole messaging layer on. When false the bus is
	// inert: no topology is declared, publishes are logged no-ops, and no
	// consumer loops start. The hosting service must keep operating.
	Enabled bool

	// ServiceName prefixes consumer queue names (e.g. "billing" declares
	// billing_booking_created) and is stamped on outgoing metadata.
	ServiceName string

	// PubSubSystem selects the backing transport. Supported values:
	// "rabbitmq", "kafka", or "channel" (in-memory, for tests and local runs).
	PubSubSystem string

	// RabbitMQ configuration.
	BrokerHost     string
	BrokerPort     int
	BrokerUsername string
	BrokerPassword string
	// Heartbeat is the AMQP heartbeat interval used to detect a dead
	// transport. Zero falls back to 60s.
	Heartbeat time.Duration

	// Kafka configuration.
	KafkaBrokers       []string
	KafkaConsumerGroup string

	// PoisonTopic receives messages that can never be processed
	// (undecodable payloads, handler failures past the retry budget).
	PoisonTopic string

	// Retry tuning for handler failures. Zero values fall back to defaults.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration

	// DedupCacheSize bounds the processed-envelope cache used to
	// short-circuit redeliveries. Zero falls back to the default.
	DedupCacheSize int

	// Metrics configuration.
	MetricsEnabled bool
	MetricsPort    int
}

const DefaultHeartbeat = 60 * time.Second

// AMQPURL assembles the broker URL from the host/port/credential fields.
func (c *Config) AMQPURL() string {
	host := c.BrokerHost
	if host == "" {
		host = "localhost"
	}
	port := c.BrokerPort
	if port == 0 {
		port = 5672
	}
	user := c.BrokerUsername
	if user == "" {
		user = "guest"
	}
	pass := c.BrokerPassword
	if pass == "" {
		pass = "guest"
	}
	// url.URL escapes the credentials per the userinfo rules, so a space
	// becomes %20 and survives the broker's URI parsing.
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(user, pass),
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/",
	}
	return u.String()
}

// Getter methods to implement the transport.Config interface.
func (c *Config) GetPubSubSystem() string       { return c.PubSubSystem }
func (c *Config) GetServiceName() string        { return c.ServiceName }
func (c *Config) GetAMQPURL() string            { return c.AMQPURL() }
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaConsumerGroup() string { return c.KafkaConsumerGroup }

func (c *Config) GetHeartbeat() time.Duration {
	if c.Heartbeat <= 0 {
		return DefaultHeartbeat
	}
	return c.Heartbeat
}

func (c Config) String() string {
	copy := c
	if copy.BrokerPassword != "" {
		copy.BrokerPassword = "***REDACTED***"
	}
	// Use a type alias to avoid infinite recursion when printing
	type configAlias Config
	return fmt.Sprintf("%+v", configAlias(copy))
}

// Validate checks that the configuration has all required fields for the
// selected transport. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	errs = append(errs, c.validateTransport()...)
	errs = append(errs, c.validateRetry()...)
	errs = append(errs, c.validatePorts()...)

	return errors.Join(errs...)
}

func (c *Config) validateTransport() []error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	switch strings.ToLower(c.PubSubSystem) {
	case "rabbitmq", "":
		// Host/port/credentials have localhost defaults; nothing mandatory.
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("kafka: brokers are required"))
		}
	case "channel":
	default:
		errs = append(errs, fmt.Errorf("unknown pubsub system %q", c.PubSubSystem))
	}
	return errs
}

func (c *Config) validateRetry() []error {
	var errs []error
	if c.RetryMaxRetries < 0 {
		errs = append(errs, errors.New("retry: max retries cannot be negative"))
	}
	if c.RetryInitialInterval < 0 {
		errs = append(errs, errors.New("retry: initial interval cannot be negative"))
	}
	if c.RetryMaxInterval < 0 {
		errs = append(errs, errors.New("retry: max interval cannot be negative"))
	}
	if c.RetryMaxInterval > 0 && c.RetryInitialInterval > 0 && c.RetryInitialInterval > c.RetryMaxInterval {
		errs = append(errs, errors.New("retry: initial interval cannot exceed max interval"))
	}
	return errs
}

func (c *Config) validatePorts() []error {
	var errs []error
	if c.BrokerPort < 0 || c.BrokerPort > 65535 {
		errs = append(errs, fmt.Errorf("broker: invalid port %d", c.BrokerPort))
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics: invalid port %d", c.MetricsPort))
	}
	return errs
}
