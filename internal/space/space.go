// Package space owns the space inventory and publishes availability
// transitions. It consumes booking events purely as usage records; outage
// reactions live in the booking service.
package space

import "time"

// ServiceName prefixes this service's consumer queues.
const ServiceName = "space"

// Status is the availability state of a space.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusOccupied    Status = "Occupied"
	StatusMaintenance Status = "Maintenance"
	StatusUnavailable Status = "Unavailable"
)

// Space is one bookable unit of the coworking inventory.
type Space struct {
	ID          string
	Name        string
	Description string
	Capacity    int
	HourlyRate  float64
	Location    string
	Status      Status
	Type        string
	CreatedAt   time.Time
}

// UsageRecord tracks one booking against a space, kept for utilisation
// reporting. It carries no authority over the booking itself.
type UsageRecord struct {
	BookingID  string
	SpaceID    string
	UserID     string
	StartTime  time.Time
	EndTime    time.Time
	Cancelled  bool
	RecordedAt time.Time
}
