// Package booking owns booking state and reacts to payment and space events.
// A booking is confirmed only by a completed payment and cancelled either by
// the user or by a space outage overlapping its time range.
package booking

import "time"

// ServiceName prefixes this service's consumer queues.
const ServiceName = "booking"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// PaymentStatus tracks how far billing got with this booking.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPaid    PaymentStatus = "Paid"
	PaymentFailed  PaymentStatus = "Failed"
)

// Booking reserves a space for a user over a half-open time range
// [StartTime, EndTime).
type Booking struct {
	ID             string
	UserID         string
	SpaceID        string
	SpaceName      string
	HourlyRate     float64
	StartTime      time.Time
	EndTime        time.Time
	Purpose        string
	AttendeesCount int
	Status         Status
	PaymentStatus  PaymentStatus
	TotalAmount    float64
	CreatedAt      time.Time
	CancelledAt    time.Time
	CancelReason   string
}

// Overlaps reports whether the booking intersects the outage window [start,
// end). A nil end means the outage is open-ended. Bookings touching only the
// boundary do not overlap.
func (b *Booking) Overlaps(start time.Time, end *time.Time) bool {
	if end == nil {
		return b.EndTime.After(start)
	}
	return b.StartTime.Before(*end) && b.EndTime.After(start)
}

// Active reports whether the booking can still be affected by an outage:
// not cancelled, not completed, and not already over.
func (b *Booking) Active(now time.Time) bool {
	if b.Status == StatusCancelled || b.Status == StatusCompleted {
		return false
	}
	return b.EndTime.After(now)
}

// Duration returns the booked time span.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}
