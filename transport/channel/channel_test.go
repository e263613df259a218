package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcowork/choreo/transport"
)

func TestRegister(t *testing.T) {
	transport.DefaultRegistry = transport.NewRegistry()
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "channel", caps.Name)
	assert.True(t, caps.SupportsOrdering)
	assert.True(t, caps.SupportsReliableDelivery())
	assert.False(t, caps.SupportsNativeDLQ)
}

func TestCapabilities(t *testing.T) {
	caps := Capabilities()
	assert.Equal(t, transport.ChannelCapabilities, caps)
	assert.Equal(t, "channel", caps.Name)
}

func TestBuild(t *testing.T) {
	t.Run("creates transport with default factory", func(t *testing.T) {
		cfg := &mockConfig{}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.NotNil(t, tr.Publisher)
		assert.NotNil(t, tr.Subscriber)
	})

	t.Run("uses custom factory", func(t *testing.T) {
		originalFactory := Factory
		defer func() { Factory = originalFactory }()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}
		Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
			return mockPub, mockSub
		}

		cfg := &mockConfig{}
		tr, err := Build(context.Background(), cfg, watermill.NopLogger{})

		require.NoError(t, err)
		assert.Equal(t, mockPub, tr.Publisher)
		assert.Equal(t, mockSub, tr.Subscriber)
	})
}

func TestTransportName(t *testing.T) {
	assert.Equal(t, "channel", TransportName)
}

func TestRoundtrip_RoutingKeyIsTopic(t *testing.T) {
	tr, err := Build(context.Background(), &mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deliveries, err := tr.Subscriber.Subscribe(ctx, "booking.created")
	require.NoError(t, err)

	sent := message.NewMessage(watermill.NewUUID(), []byte(`{"booking_id":"booking-1"}`))
	require.NoError(t, tr.Publisher.Publish("booking.created", sent))

	select {
	case received := <-deliveries:
		assert.Equal(t, sent.UUID, received.UUID)
		assert.JSONEq(t, string(sent.Payload), string(received.Payload))
		received.Ack()
	case <-ctx.Done():
		t.Fatal("expected delivery on booking.created")
	}
}

type mockConfig struct{}

func (m *mockConfig) GetPubSubSystem() string       { return "channel" }
func (m *mockConfig) GetServiceName() string        { return "booking" }
func (m *mockConfig) GetAMQPURL() string            { return "" }
func (m *mockConfig) GetHeartbeat() time.Duration   { return 0 }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
