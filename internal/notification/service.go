package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcowork/choreo/internal/bus"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	"github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/logging"
	"github.com/smartcowork/choreo/internal/events"
)

// Service records notifications for billing and booking events.
type Service struct {
	store Store
	log   logging.ServiceLogger

	now func() time.Time
}

func NewService(store Store, log logging.ServiceLogger) *Service {
	return &Service{
		store: store,
		log:   log.With(logging.LogFields{"service": ServiceName}),
		now:   time.Now,
	}
}

// RegisterHandlers attaches the notification reactions to the bus.
func RegisterHandlers(b *bus.Bus, svc *Service) error {
	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.InvoiceCreatedMessage, *events.InvoiceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.InvoiceCreated),
		ConsumeQueue: events.InvoiceCreated,
		Handler:      svc.HandleInvoiceCreated,
	}); err != nil {
		return err
	}

	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.InvoicePaidMessage, *events.InvoiceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.InvoicePaid),
		ConsumeQueue: events.InvoicePaid,
		Handler:      svc.HandleInvoicePaid,
	}); err != nil {
		return err
	}

	return bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCancelledMessage, *events.InvoiceCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCancelled),
		ConsumeQueue: events.BookingCancelled,
		Handler:      svc.HandleBookingCancelled,
	})
}

func (s *Service) HandleInvoiceCreated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.InvoiceCreatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage], error) {
	return nil, s.record(ctx, &Notification{
		UserID:  ev.Payload.UserID,
		Kind:    KindInvoiceCreated,
		Subject: "New invoice",
		Body:    fmt.Sprintf("Invoice %s over %.2f is due %s.", ev.Payload.InvoiceID, ev.Payload.TotalAmount, ev.Payload.DueDate.Format("2006-01-02")),
	})
}

func (s *Service) HandleInvoicePaid(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.InvoicePaidMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage], error) {
	return nil, s.record(ctx, &Notification{
		UserID:  ev.Payload.UserID,
		Kind:    KindInvoicePaid,
		Subject: "Payment received",
		Body:    fmt.Sprintf("Invoice %s over %.2f is settled.", ev.Payload.InvoiceID, ev.Payload.TotalAmount),
	})
}

func (s *Service) HandleBookingCancelled(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCancelledMessage]) ([]handlerpkg.JSONMessageOutput[*events.InvoiceCreatedMessage], error) {
	return nil, s.record(ctx, &Notification{
		UserID:  ev.Payload.UserID,
		Kind:    KindBookingCancelled,
		Subject: "Booking cancelled",
		Body:    fmt.Sprintf("Your booking %s was cancelled: %s.", ev.Payload.BookingID, ev.Payload.Reason),
	})
}

func (s *Service) record(ctx context.Context, n *Notification) error {
	n.ID = ids.CreateUUID()
	n.CreatedAt = s.now().UTC()
	if err := s.store.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification for user %s: %w", n.UserID, err)
	}

	s.log.Info("Notification recorded", logging.LogFields{
		"user_id": n.UserID,
		"kind":    string(n.Kind),
	})
	return nil
}
