package space

import (
	"context"

	"github.com/smartcowork/choreo/internal/bus"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	"github.com/smartcowork/choreo/internal/events"
)

// RegisterHandlers attaches the informational booking reactions to the bus.
func RegisterHandlers(b *bus.Bus, svc *Service) error {
	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCreatedMessage, *events.SpaceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCreated),
		ConsumeQueue: events.BookingCreated,
		Handler:      svc.HandleBookingCreated,
	}); err != nil {
		return err
	}

	return bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCancelledMessage, *events.SpaceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCancelled),
		ConsumeQueue: events.BookingCancelled,
		Handler:      svc.HandleBookingCancelled,
	})
}

func (s *Service) HandleBookingCreated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCreatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.SpaceCreatedMessage], error) {
	return nil, s.RecordUsage(ctx, ev.Payload)
}

func (s *Service) HandleBookingCancelled(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCancelledMessage]) ([]handlerpkg.JSONMessageOutput[*events.SpaceCreatedMessage], error) {
	return nil, s.MarkUsageCancelled(ctx, ev.Payload)
}
