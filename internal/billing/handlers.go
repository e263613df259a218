package billing

import (
	"context"

	"github.com/smartcowork/choreo/internal/bus"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	"github.com/smartcowork/choreo/internal/events"
)

// RegisterHandlers attaches the billing reactions to the bus. Each routing
// key gets its own queue (billing_booking_created, ...) so ack and requeue
// lifecycles stay independent.
func RegisterHandlers(b *bus.Bus, svc *Service) error {
	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCreatedMessage, *events.InvoiceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCreated),
		ConsumeQueue: events.BookingCreated,
		PublishQueue: events.InvoiceCreated,
		Handler:      svc.HandleBookingCreated,
	}); err != nil {
		return err
	}

	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingUpdatedMessage, *events.InvoiceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingUpdated),
		ConsumeQueue: events.BookingUpdated,
		Handler:      svc.HandleBookingUpdated,
	}); err != nil {
		return err
	}

	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCancelledMessage, *events.InvoiceCancelledMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCancelled),
		ConsumeQueue: events.BookingCancelled,
		Handler:      svc.HandleBookingCancelled,
	}); err != nil {
		return err
	}

	return bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCompletedMessage, *events.InvoicePaidMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCompleted),
		ConsumeQueue: events.BookingCompleted,
		Handler:      svc.HandleBookingCompleted,
	})
}

// HandleBookingCreated ensures the invoice for the new booking and emits
// invoice.created when one was actually created.
func (s *Service) HandleBookingCreated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCreatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage], error) {
	_, created, err := s.EnsureInvoiceForBooking(ctx, ev.Payload)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, nil
	}
	return []handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage]{{Message: created}}, nil
}

func (s *Service) HandleBookingUpdated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingUpdatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage], error) {
	return nil, s.ReviseInvoiceForBooking(ctx, ev.Payload)
}

func (s *Service) HandleBookingCancelled(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCancelledMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCancelledMessage], error) {
	return nil, s.CancelInvoiceForBooking(ctx, ev.Payload)
}

func (s *Service) HandleBookingCompleted(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCompletedMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoicePaidMessage], error) {
	return nil, s.CheckPaymentReminder(ctx, ev.Payload)
}
