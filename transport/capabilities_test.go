package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities_DerivedProperties(t *testing.T) {
	tests := []struct {
		name         string
		caps         Capabilities
		reliable     bool
		dlqEmulation bool
	}{
		{
			name:         "full broker",
			caps:         Capabilities{SupportsAck: true, SupportsNack: true, SupportsNativeDLQ: true},
			reliable:     true,
			dlqEmulation: false,
		},
		{
			name:         "ack without nack is not reliable",
			caps:         Capabilities{SupportsAck: true},
			reliable:     false,
			dlqEmulation: true,
		},
		{
			name:         "nack without ack is not reliable",
			caps:         Capabilities{SupportsNack: true},
			reliable:     false,
			dlqEmulation: true,
		},
		{
			name:         "zero value assumes nothing",
			caps:         Capabilities{},
			reliable:     false,
			dlqEmulation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reliable, tt.caps.SupportsReliableDelivery())
			assert.Equal(t, tt.dlqEmulation, tt.caps.RequiresDLQEmulation())
		})
	}
}

func TestPredefinedCapabilities(t *testing.T) {
	t.Run("rabbitmq honours everything natively", func(t *testing.T) {
		assert.Equal(t, "rabbitmq", RabbitMQCapabilities.Name)
		assert.True(t, RabbitMQCapabilities.SupportsReliableDelivery())
		assert.True(t, RabbitMQCapabilities.SupportsRoutingPatterns)
		assert.True(t, RabbitMQCapabilities.SupportsNativeDLQ)
		assert.False(t, RabbitMQCapabilities.RequiresDLQEmulation())
	})

	t.Run("kafka has no nack so poison routing is emulated", func(t *testing.T) {
		assert.Equal(t, "kafka", KafkaCapabilities.Name)
		assert.True(t, KafkaCapabilities.SupportsOrdering)
		assert.False(t, KafkaCapabilities.SupportsNack)
		assert.True(t, KafkaCapabilities.RequiresDLQEmulation())
	})

	t.Run("channel is reliable in-process", func(t *testing.T) {
		assert.Equal(t, "channel", ChannelCapabilities.Name)
		assert.True(t, ChannelCapabilities.SupportsOrdering)
		assert.True(t, ChannelCapabilities.SupportsReliableDelivery())
		assert.False(t, ChannelCapabilities.SupportsNativeDLQ)
	})
}

func TestGetCapabilities_UnknownTransport(t *testing.T) {
	caps := GetCapabilities("nonexistent")
	assert.Equal(t, "nonexistent", caps.Name)
	assert.False(t, caps.SupportsAck)
}
