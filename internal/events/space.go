package events

import "time"

// Events published by the space service on space_events.

type SpaceCreatedMessage struct {
	Envelope

	SpaceID     string  `json:"space_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Capacity    int     `json:"capacity"`
	HourlyRate  float64 `json:"hourly_rate"`
	Location    string  `json:"location"`
	Status      string  `json:"status"`
	Type        string  `json:"type"`
}

// SpaceStatusChangedMessage announces an availability transition. EndDate is
// nil for an open-ended outage; consumers treat nil as "until further
// notice" when testing overlap.
type SpaceStatusChangedMessage struct {
	Envelope

	SpaceID        string     `json:"space_id"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	Reason         string     `json:"reason"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	ChangedAt      time.Time  `json:"changed_at"`
}

type SpaceDeletedMessage struct {
	Envelope

	SpaceID   string    `json:"space_id"`
	Name      string    `json:"name"`
	DeletedAt time.Time `json:"deleted_at"`
}

// Space statuses carried in SpaceStatusChangedMessage.
const (
	SpaceStatusAvailable   = "Available"
	SpaceStatusOccupied    = "Occupied"
	SpaceStatusMaintenance = "Maintenance"
	SpaceStatusUnavailable = "Unavailable"
)
