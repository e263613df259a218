package space

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcowork/choreo/internal/bus"
	"github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/logging"
	"github.com/smartcowork/choreo/internal/events"
)

// CreateParams carries the input for a new space.
type CreateParams struct {
	Name        string
	Description string
	Capacity    int
	HourlyRate  float64
	Location    string
	Type        string
}

// Service implements the space operations and the informational booking
// reactions.
type Service struct {
	repo     Repository
	producer bus.Producer
	log      logging.ServiceLogger

	now func() time.Time
}

func NewService(repo Repository, producer bus.Producer, log logging.ServiceLogger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		log:      log.With(logging.LogFields{"service": ServiceName}),
		now:      time.Now,
	}
}

// Create stores a new Available space and publishes space.created.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Space, error) {
	space := &Space{
		ID:          ids.CreateUUID(),
		Name:        params.Name,
		Description: params.Description,
		Capacity:    params.Capacity,
		HourlyRate:  params.HourlyRate,
		Location:    params.Location,
		Status:      StatusAvailable,
		Type:        params.Type,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Save(ctx, space); err != nil {
		return nil, fmt.Errorf("failed to save space: %w", err)
	}

	return space, s.producer.Publish(ctx, events.SpaceCreated, &events.SpaceCreatedMessage{
		Envelope:    events.NewEnvelope(),
		SpaceID:     space.ID,
		Name:        space.Name,
		Description: space.Description,
		Capacity:    space.Capacity,
		HourlyRate:  space.HourlyRate,
		Location:    space.Location,
		Status:      string(space.Status),
		Type:        space.Type,
	}, nil)
}

// SetStatus transitions a space and publishes space.status_changed with the
// affected window. For Maintenance and Unavailable the window drives the
// outage cancellation in the booking service; endDate nil means open-ended.
func (s *Service) SetStatus(ctx context.Context, spaceID string, status Status, reason string, startDate time.Time, endDate *time.Time) (*Space, error) {
	space, err := s.repo.ByID(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up space %s: %w", spaceID, err)
	}
	if space.Status == status {
		return space, nil
	}

	previous := space.Status
	space.Status = status
	if err := s.repo.Save(ctx, space); err != nil {
		return nil, fmt.Errorf("failed to save space %s: %w", space.ID, err)
	}

	s.log.Info("Space status changed", logging.LogFields{
		"space_id":        space.ID,
		"previous_status": string(previous),
		"new_status":      string(status),
		"reason":          reason,
	})

	return space, s.producer.Publish(ctx, events.SpaceStatusChanged, &events.SpaceStatusChangedMessage{
		Envelope:       events.NewEnvelope(),
		SpaceID:        space.ID,
		PreviousStatus: string(previous),
		NewStatus:      string(status),
		Reason:         reason,
		StartDate:      startDate,
		EndDate:        endDate,
		ChangedAt:      s.now().UTC(),
	}, nil)
}

// Delete removes a space from the inventory and publishes space.deleted.
func (s *Service) Delete(ctx context.Context, spaceID string) error {
	space, err := s.repo.ByID(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("failed to look up space %s: %w", spaceID, err)
	}
	if err := s.repo.Delete(ctx, spaceID); err != nil {
		return fmt.Errorf("failed to delete space %s: %w", spaceID, err)
	}

	return s.producer.Publish(ctx, events.SpaceDeleted, &events.SpaceDeletedMessage{
		Envelope:  events.NewEnvelope(),
		SpaceID:   space.ID,
		Name:      space.Name,
		DeletedAt: s.now().UTC(),
	}, nil)
}

// RecordUsage stores a usage record for a new booking. The upsert keyed on
// booking ID makes redelivery harmless. An unknown space is still recorded;
// inventory and bookings converge eventually.
func (s *Service) RecordUsage(ctx context.Context, ev *events.BookingCreatedMessage) error {
	record := &UsageRecord{
		BookingID:  ev.BookingID,
		SpaceID:    ev.SpaceID,
		UserID:     ev.UserID,
		StartTime:  ev.StartTime,
		EndTime:    ev.EndTime,
		RecordedAt: s.now().UTC(),
	}
	if err := s.repo.SaveUsage(ctx, record); err != nil {
		return fmt.Errorf("failed to save usage record for booking %s: %w", ev.BookingID, err)
	}

	s.log.Debug("Usage recorded for booking", logging.LogFields{
		"booking_id": ev.BookingID,
		"space_id":   ev.SpaceID,
	})
	return nil
}

// MarkUsageCancelled flags the usage record of a cancelled booking. A record
// that was never seen is created as already cancelled.
func (s *Service) MarkUsageCancelled(ctx context.Context, ev *events.BookingCancelledMessage) error {
	record := &UsageRecord{
		BookingID:  ev.BookingID,
		SpaceID:    ev.SpaceID,
		UserID:     ev.UserID,
		StartTime:  ev.StartTime,
		EndTime:    ev.EndTime,
		Cancelled:  true,
		RecordedAt: s.now().UTC(),
	}
	if err := s.repo.SaveUsage(ctx, record); err != nil {
		return fmt.Errorf("failed to update usage record for booking %s: %w", ev.BookingID, err)
	}
	return nil
}
