package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcowork/choreo/internal/bus"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	"github.com/smartcowork/choreo/internal/bus/logging"
	"github.com/smartcowork/choreo/internal/events"
)

// Service records recommendation signals from booking and space events.
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

// RegisterHandlers attaches the signal collectors to the bus.
func RegisterHandlers(b *bus.Bus, svc *Service) error {
	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCreatedMessage, *events.BookingCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCreated),
		ConsumeQueue: events.BookingCreated,
		Handler:      svc.HandleBookingCreated,
	}); err != nil {
		return err
	}

	if err := bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.BookingCompletedMessage, *events.BookingCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.BookingCompleted),
		ConsumeQueue: events.BookingCompleted,
		Handler:      svc.HandleBookingCompleted,
	}); err != nil {
		return err
	}

	return bus.RegisterJSONHandler(b, handlerpkg.JSONHandlerRegistration[*events.SpaceCreatedMessage, *events.BookingCreatedMessage]{
		Name:         events.QueueName(ServiceName, events.SpaceCreated),
		ConsumeQueue: events.SpaceCreated,
		Handler:      svc.HandleSpaceCreated,
	})
}

func (s *Service) HandleBookingCreated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCreatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.BookingCreatedMessage], error) {
	return nil, s.recordActivity(ctx, &Activity{
		UserID:    ev.Payload.UserID,
		BookingID: ev.Payload.BookingID,
		SpaceID:   ev.Payload.SpaceID,
		Kind:      ActivityBookingCreated,
	})
}

func (s *Service) HandleBookingCompleted(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.BookingCompletedMessage]) ([]handlerpkg.JSONMessageOutput[*events.BookingCreatedMessage], error) {
	return nil, s.recordActivity(ctx, &Activity{
		UserID:    ev.Payload.UserID,
		BookingID: ev.Payload.BookingID,
		SpaceID:   ev.Payload.SpaceID,
		Kind:      ActivityBookingCompleted,
	})
}

func (s *Service) HandleSpaceCreated(ctx context.Context, ev handlerpkg.JSONMessageContext[*events.SpaceCreatedMessage]) ([]handlerpkg.JSONMessageOutput[*events.BookingCreatedMessage], error) {
	entry := &CatalogEntry{
		SpaceID:    ev.Payload.SpaceID,
		Name:       ev.Payload.Name,
		Type:       ev.Payload.Type,
		Capacity:   ev.Payload.Capacity,
		HourlyRate: ev.Payload.HourlyRate,
		Location:   ev.Payload.Location,
	}
	if err := s.store.SaveCatalogEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to index space %s: %w", entry.SpaceID, err)
	}

	s.log.Debug("Space indexed for recommendations", logging.LogFields{
		"space_id": entry.SpaceID,
	})
	return nil, nil
}

func (s *Service) recordActivity(ctx context.Context, a *Activity) error {
	a.ObservedAt = s.now().UTC()
	if err := s.store.SaveActivity(ctx, a); err != nil {
		return fmt.Errorf("failed to save activity for user %s: %w", a.UserID, err)
	}
	return nil
}
