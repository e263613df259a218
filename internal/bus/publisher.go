package bus

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	idspkg "github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/jsoncodec"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
	"github.com/smartcowork/choreo/internal/events"
)

// Producer emits domain events onto the configured transport. Services
// depend on this interface rather than the Bus so tests can capture
// published events.
type Producer interface {
	Publish(ctx context.Context, routingKey string, event events.Enveloped, md metadatapkg.Metadata) error
}

// NewMessageFromEvent converts the event payload into a Watermill message
// with the standard metadata required by the event pipeline. The message
// UUID is a fresh ULID; the envelope ID inside the payload is echoed into
// metadata so consumers can deduplicate without decoding.
func NewMessageFromEvent(event events.Enveloped, md metadatapkg.Metadata) (*message.Message, error) {
	if event == nil {
		return nil, errspkg.ErrEventPayloadRequired
	}

	payload, err := jsoncodec.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	now := time.Now().UTC()
	md = md.Clone()
	md[metadatapkg.KeyContentType] = "application/json"
	md[metadatapkg.KeyEventSchema] = fmt.Sprintf("%T", event)
	md[metadatapkg.KeyEnvelopeID] = event.EnvelopeID()
	md[metadatapkg.KeyPublishedAt] = now.Format(time.RFC3339Nano)
	md[metadatapkg.KeyTimestamp] = strconv.FormatInt(now.Unix(), 10)

	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(md)
	return msg, nil
}

// PublishEvent marshals the event and publishes it under the routing key.
func PublishEvent(ctx context.Context, publisher message.Publisher, routingKey string, event events.Enveloped, md metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if routingKey == "" {
		return errspkg.ErrRoutingKeyRequired
	}

	msg, err := NewMessageFromEvent(event, md)
	if err != nil {
		return err
	}

	if ctx != nil {
		msg.SetContext(ctx)
	}

	return publisher.Publish(routingKey, msg)
}

// Publish emits the event using the bus publisher. On an inert bus it logs
// the skipped event and reports success so callers never branch on
// messaging availability.
func (b *Bus) Publish(ctx context.Context, routingKey string, event events.Enveloped, md metadatapkg.Metadata) error {
	if b == nil {
		return errspkg.ErrBusRequired
	}
	if b.disabled {
		b.Logger.Debug("Messaging disabled, skipping publish", loggingpkg.LogFields{
			"routing_key": routingKey,
		})
		return nil
	}

	if md == nil {
		md = metadatapkg.Metadata{}
	}
	if b.Conf != nil && b.Conf.ServiceName != "" {
		md = md.With(metadatapkg.KeySourceService, b.Conf.ServiceName)
	}

	return PublishEvent(ctx, b.publisher, routingKey, event, md)
}
