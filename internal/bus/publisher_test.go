package bus

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcowork/choreo/internal/bus/jsoncodec"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
	"github.com/smartcowork/choreo/internal/events"
)

func newBookingCreated() *events.BookingCreatedMessage {
	return &events.BookingCreatedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
		UserID:    "user-1",
		SpaceID:   "space-1",
		Status:    "Pending",
	}
}

func TestNewMessageFromEvent(t *testing.T) {
	event := newBookingCreated()

	msg, err := NewMessageFromEvent(event, metadatapkg.New(metadatapkg.KeyCorrelationID, "corr-1"))
	require.NoError(t, err)

	assert.NotEmpty(t, msg.UUID)
	assert.Equal(t, "application/json", msg.Metadata.Get(metadatapkg.KeyContentType))
	assert.Equal(t, "*events.BookingCreatedMessage", msg.Metadata.Get(metadatapkg.KeyEventSchema))
	assert.Equal(t, event.ID, msg.Metadata.Get(metadatapkg.KeyEnvelopeID))
	assert.Equal(t, "corr-1", msg.Metadata.Get(metadatapkg.KeyCorrelationID))
	assert.NotEmpty(t, msg.Metadata.Get(metadatapkg.KeyPublishedAt))

	secs, err := strconv.ParseInt(msg.Metadata.Get(metadatapkg.KeyTimestamp), 10, 64)
	require.NoError(t, err, "timestamp header must hold unix seconds")
	assert.WithinDuration(t, time.Now(), time.Unix(secs, 0), time.Minute)

	var decoded events.BookingCreatedMessage
	require.NoError(t, jsoncodec.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "booking-1", decoded.BookingID)
	assert.Equal(t, event.ID, decoded.ID)
}

func TestNewMessageFromEvent_NilPayload(t *testing.T) {
	_, err := NewMessageFromEvent(nil, nil)
	assert.Error(t, err)
}

func TestPublishEvent_Validation(t *testing.T) {
	event := newBookingCreated()

	err := PublishEvent(context.Background(), nil, events.BookingCreated, event, nil)
	assert.Error(t, err)

	err = PublishEvent(context.Background(), newTestPublisher(), "", event, nil)
	assert.Error(t, err)
}

func TestBus_Publish(t *testing.T) {
	b, pub := newTestBus(t)

	event := newBookingCreated()
	err := b.Publish(context.Background(), events.BookingCreated, event, nil)
	require.NoError(t, err)

	msgs := pub.Messages(events.BookingCreated)
	require.Len(t, msgs, 1)
	assert.Equal(t, "test", msgs[0].Metadata.Get(metadatapkg.KeySourceService))
}

func TestBus_PublishDisabledIsNoOp(t *testing.T) {
	b, log := newDisabledBus(t)

	err := b.Publish(context.Background(), events.BookingCreated, newBookingCreated(), nil)
	require.NoError(t, err)

	logs := log.Logs()
	require.NotEmpty(t, logs)
	assert.Equal(t, "debug", logs[len(logs)-1].level)
	assert.Equal(t, "Messaging disabled, skipping publish", logs[len(logs)-1].msg)
}

func TestBus_PublishNilBus(t *testing.T) {
	var b *Bus
	err := b.Publish(context.Background(), events.BookingCreated, newBookingCreated(), nil)
	assert.Error(t, err)
}
