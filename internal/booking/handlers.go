package booking

import (
	"context"

	"github.com/smartcowork/choreo/internal/bus"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	"github.com/smartcowork/choreo/internal/events"
)

// RegisterHandlers attaches the booking reactions to the bus: payment
// outcomes from billing and outage windows from space.
func RegisterHandlers(b *bus.Bus, svc *Service) error {
	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.PaymentProcessedMessage, *events.BookingCancelledMessage]{
		Name:         events.QueueName(ServiceName, events.PaymentProcessed),
		ConsumeQueue: events.PaymentProcessed,
		Handler:      svc.HandlePaymentProcessed,
	}); err != nil {
		return err
	}

	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.PaymentProcessedMessage, *events.BookingCancelledMessage]{
		Name:         events.QueueName(ServiceName, events.PaymentRefunded),
		ConsumeQueue: events.PaymentRefunded,
		Handler:      svc.HandlePaymentProcessed,
	}); err != nil {
		return err
	}

	// Outage cancellations flow back out through the handler's publish queue.
	return bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.SpaceStatusChangedMessage, *events.BookingCancelledMessage]{
		Name:         events.QueueName(ServiceName, events.SpaceStatusChanged),
		ConsumeQueue: events.SpaceStatusChanged,
		PublishQueue: events.BookingCancelled,
		Handler:      svc.HandleSpaceStatusChanged,
	})
}

func (s *Service) HandlePaymentProcessed(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.PaymentProcessedMessage]) ([]handlerpkg.JSONMessageOutput[*events.BookingCancelledMessage], error) {
	return nil, s.ApplyPayment(ctx, ev.Payload)
}

func (s *Service) HandleSpaceStatusChanged(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.SpaceStatusChangedMessage]) ([]handlerpkg.JSONMessageOutput[*events.BookingCancelledMessage], error) {
	cancelled, err := s.CancelOverlapping(ctx, ev.Payload)
	if err != nil {
		return nil, err
	}

	outputs := make([]handlerpkg.JSONMessageOutput[*events.BookingCancelledMessage], len(cancelled))
	for i, event := range cancelled {
		outputs[i] = handlerpkg.JSONMessageOutput[*events.BookingCancelledMessage]{Message: event}
	}
	return outputs, nil
}
