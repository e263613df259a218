package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcowork/choreo/internal/bus"
	"github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/logging"
	"github.com/smartcowork/choreo/internal/events"
)

// CreateParams carries the user input for a new booking.
type CreateParams struct {
	UserID         string
	SpaceID        string
	SpaceName      string
	HourlyRate     float64
	StartTime      time.Time
	EndTime        time.Time
	Purpose        string
	AttendeesCount int
}

// Service implements booking operations and the reactions to payment and
// space events. Local state is committed before any event is published.
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

// Create stores a Pending booking and publishes booking.created. A publish
// failure is returned to the caller but the booking stays committed.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Booking, error) {
	if !params.EndTime.After(params.StartTime) {
		return nil, fmt.Errorf("booking: end time %s is not after start time %s", params.EndTime, params.StartTime)
	}

	booking := &Booking{
		ID:             ids.CreateUUID(),
		UserID:         params.UserID,
		SpaceID:        params.SpaceID,
		SpaceName:      params.SpaceName,
		HourlyRate:     params.HourlyRate,
		StartTime:      params.StartTime,
		EndTime:        params.EndTime,
		Purpose:        params.Purpose,
		AttendeesCount: params.AttendeesCount,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		TotalAmount:    params.EndTime.Sub(params.StartTime).Hours() * params.HourlyRate,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Save(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.log.Info("Booking created", logging.LogFields{
		"booking_id": booking.ID,
		"space_id":   booking.SpaceID,
	})

	return booking, s.producer.Publish(ctx, events.BookingCreated, &events.BookingCreatedMessage{
		Envelope:       events.NewEnvelope(),
		BookingID:      booking.ID,
		UserID:         booking.UserID,
		SpaceID:        booking.SpaceID,
		SpaceName:      booking.SpaceName,
		HourlyRate:     booking.HourlyRate,
		StartTime:      booking.StartTime,
		EndTime:        booking.EndTime,
		Purpose:        booking.Purpose,
		AttendeesCount: booking.AttendeesCount,
		Status:         string(booking.Status),
	}, nil)
}

// Reschedule moves a booking to a new time range and publishes
// booking.updated carrying both the previous and the new range so billing
// can revise the invoice.
func (s *Service) Reschedule(ctx context.Context, bookingID string, start, end time.Time) (*Booking, error) {
	booking, err := s.repo.ByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking %s: %w", bookingID, err)
	}
	if booking.Status == StatusCancelled || booking.Status == StatusCompleted {
		return nil, fmt.Errorf("booking: cannot reschedule a %s booking", booking.Status)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("booking: end time %s is not after start time %s", end, start)
	}

	previousStart, previousEnd := booking.StartTime, booking.EndTime
	booking.StartTime = start
	booking.EndTime = end
	booking.TotalAmount = end.Sub(start).Hours() * booking.HourlyRate
	if err := s.repo.Save(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}

	return booking, s.producer.Publish(ctx, events.BookingUpdated, &events.BookingUpdatedMessage{
		Envelope:          events.NewEnvelope(),
		BookingID:         booking.ID,
		UserID:            booking.UserID,
		SpaceID:           booking.SpaceID,
		PreviousStartTime: previousStart,
		PreviousEndTime:   previousEnd,
		StartTime:         start,
		EndTime:           end,
	}, nil)
}

// Cancel cancels a booking on the user's behalf and publishes
// booking.cancelled. Cancelling an already cancelled booking is a no-op.
func (s *Service) Cancel(ctx context.Context, bookingID, reason string) (*Booking, error) {
	booking, err := s.repo.ByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking %s: %w", bookingID, err)
	}
	if booking.Status == StatusCancelled {
		return booking, nil
	}
	if reason == "" {
		reason = "cancelled by user"
	}

	booking.Status = StatusCancelled
	booking.CancelledAt = s.now().UTC()
	booking.CancelReason = reason
	if err := s.repo.Save(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}

	s.log.Info("Booking cancelled", logging.LogFields{
		"booking_id": booking.ID,
		"reason":     reason,
	})

	return booking, s.producer.Publish(ctx, events.BookingCancelled, &events.BookingCancelledMessage{
		Envelope:    events.NewEnvelope(),
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		SpaceID:     booking.SpaceID,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		CancelledAt: booking.CancelledAt,
		Reason:      reason,
	}, nil)
}

// Complete closes a finished booking and publishes booking.completed, which
// billing uses for its payment-reminder check.
func (s *Service) Complete(ctx context.Context, bookingID string) (*Booking, error) {
	booking, err := s.repo.ByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up booking %s: %w", bookingID, err)
	}
	if booking.Status == StatusCancelled {
		return nil, fmt.Errorf("booking: cannot complete a cancelled booking")
	}

	booking.Status = StatusCompleted
	if err := s.repo.Save(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}

	return booking, s.producer.Publish(ctx, events.BookingCompleted, &events.BookingCompletedMessage{
		Envelope:    events.NewEnvelope(),
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		SpaceID:     booking.SpaceID,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		TotalAmount: booking.TotalAmount,
		CompletedAt: s.now().UTC(),
	}, nil)
}

// ApplyPayment records the outcome of a payment transaction on the booking.
// A Completed payment confirms a Pending booking; a Failed one only marks
// the payment status; a Refunded one reverts the payment status to Pending.
// An unknown booking is logged and acked, redelivery cannot create it.
func (s *Service) ApplyPayment(ctx context.Context, ev *events.PaymentProcessedMessage) error {
	booking, err := s.repo.ByID(ctx, ev.BookingID)
	if err == ErrNotFound {
		s.log.Info("No booking found for payment event", logging.LogFields{
			"booking_id": ev.BookingID,
			"payment_id": ev.PaymentID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up booking %s: %w", ev.BookingID, err)
	}

	switch ev.Status {
	case events.PaymentStatusCompleted:
		booking.PaymentStatus = PaymentPaid
		if booking.Status == StatusPending {
			booking.Status = StatusConfirmed
		}
	case events.PaymentStatusFailed:
		booking.PaymentStatus = PaymentFailed
	case events.PaymentStatusRefunded:
		booking.PaymentStatus = PaymentPending
	default:
		s.log.Info("Ignoring payment event with unknown status", logging.LogFields{
			"booking_id": ev.BookingID,
			"status":     ev.Status,
		})
		return nil
	}

	if err := s.repo.Save(ctx, booking); err != nil {
		return fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
	}

	s.log.Info("Payment applied to booking", logging.LogFields{
		"booking_id":     booking.ID,
		"status":         string(booking.Status),
		"payment_status": string(booking.PaymentStatus),
	})
	return nil
}

// CancelOverlapping cancels every active booking on the space whose time
// range intersects the outage window and returns the booking.cancelled
// events to publish. Transitions back to Available produce nothing.
func (s *Service) CancelOverlapping(ctx context.Context, ev *events.SpaceStatusChangedMessage) ([]*events.BookingCancelledMessage, error) {
	if ev.NewStatus != events.SpaceStatusMaintenance && ev.NewStatus != events.SpaceStatusUnavailable {
		return nil, nil
	}

	bookings, err := s.repo.BySpace(ctx, ev.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for space %s: %w", ev.SpaceID, err)
	}

	now := s.now().UTC()
	reason := "space unavailable: " + ev.Reason
	var cancelled []*events.BookingCancelledMessage

	for _, booking := range bookings {
		if !booking.Active(now) || !booking.Overlaps(ev.StartDate, ev.EndDate) {
			continue
		}

		booking.Status = StatusCancelled
		booking.CancelledAt = now
		booking.CancelReason = reason
		if err := s.repo.Save(ctx, booking); err != nil {
			return cancelled, fmt.Errorf("failed to save booking %s: %w", booking.ID, err)
		}

		s.log.Info("Booking cancelled by space outage", logging.LogFields{
			"booking_id": booking.ID,
			"space_id":   ev.SpaceID,
			"reason":     ev.Reason,
		})

		cancelled = append(cancelled, &events.BookingCancelledMessage{
			Envelope:    events.NewEnvelope(),
			BookingID:   booking.ID,
			UserID:      booking.UserID,
			SpaceID:     booking.SpaceID,
			StartTime:   booking.StartTime,
			EndTime:     booking.EndTime,
			CancelledAt: now,
			Reason:      reason,
		})
	}
	return cancelled, nil
}
