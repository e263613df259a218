package transport

// Capabilities describes the delivery guarantees a transport backend can
// honour. The bus consults this to decide whether requeue-on-nack and
// poison routing behave natively or must be emulated.
type Capabilities struct {
	// SupportsAck indicates the transport supports explicit message
	// acknowledgment.
	SupportsAck bool

	// SupportsNack indicates the transport supports negative acknowledgment
	// with redelivery.
	SupportsNack bool

	// SupportsOrdering indicates deliveries within a single queue arrive in
	// order. Nothing is guaranteed across queues on any backend.
	SupportsOrdering bool

	// SupportsRoutingPatterns indicates the backend matches hierarchical
	// routing keys (booking.*) natively.
	SupportsRoutingPatterns bool

	// SupportsNativeDLQ indicates the broker can dead-letter rejected
	// messages itself. When false the bus routes poison messages at the
	// application level.
	SupportsNativeDLQ bool

	// Name is the human-readable name of the transport.
	Name string
}

// SupportsReliableDelivery returns true if the transport offers
// at-least-once semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// RequiresDLQEmulation returns true when poison routing must happen at the
// application level.
func (c Capabilities) RequiresDLQEmulation() bool {
	return !c.SupportsNativeDLQ
}

// Predefined capability sets for the supported transports.
var (
	// RabbitMQCapabilities for the RabbitMQ/AMQP transport.
	RabbitMQCapabilities = Capabilities{
		Name:                    "rabbitmq",
		SupportsAck:             true,
		SupportsNack:            true,
		SupportsOrdering:        true,
		SupportsRoutingPatterns: true,
		SupportsNativeDLQ:       true,
	}

	// KafkaCapabilities for the Apache Kafka transport.
	KafkaCapabilities = Capabilities{
		Name:             "kafka",
		SupportsAck:      true,
		SupportsNack:     false,
		SupportsOrdering: true,
	}

	// ChannelCapabilities for the in-memory Go channel transport.
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsAck:      true,
		SupportsNack:     true,
		SupportsOrdering: true,
	}
)

// GetCapabilities returns the capabilities for a transport by name.
func GetCapabilities(transportName string) Capabilities {
	return DefaultRegistry.GetCapabilities(transportName)
}
