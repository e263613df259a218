package events

import "time"

// Events published by the booking service on booking_events.

type BookingCreatedMessage struct {
	Envelope

	BookingID      string    `json:"booking_id"`
	UserID         string    `json:"user_id"`
	SpaceID        string    `json:"space_id"`
	SpaceName      string    `json:"space_name"`
	HourlyRate     float64   `json:"hourly_rate"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Purpose        string    `json:"purpose"`
	AttendeesCount int       `json:"attendees_count"`
	Status         string    `json:"status"`
}

type BookingUpdatedMessage struct {
	Envelope

	BookingID         string    `json:"booking_id"`
	UserID            string    `json:"user_id"`
	SpaceID           string    `json:"space_id"`
	PreviousStartTime time.Time `json:"previous_start_time"`
	PreviousEndTime   time.Time `json:"previous_end_time"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
}

type BookingCancelledMessage struct {
	Envelope

	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	SpaceID     string    `json:"space_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

type BookingCompletedMessage struct {
	Envelope

	BookingID   string    `json:"booking_id"`
	UserID      string    `json:"user_id"`
	SpaceID     string    `json:"space_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	TotalAmount float64   `json:"total_amount"`
	CompletedAt time.Time `json:"completed_at"`
}
