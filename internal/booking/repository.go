package booking

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no booking matches the lookup.
var ErrNotFound = errors.New("booking: not found")

// Repository owns booking state for the booking service.
type Repository interface {
	ByID(ctx context.Context, id string) (*Booking, error)
	// BySpace returns every booking reserving the given space, in no
	// particular order.
	BySpace(ctx context.Context, spaceID string) ([]*Booking, error)
	Save(ctx context.Context, booking *Booking) error
}

// InMemoryRepository keeps bookings in process memory for tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]*Booking
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[string]*Booking)}
}

func (r *InMemoryRepository) ByID(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (r *InMemoryRepository) BySpace(_ context.Context, spaceID string) ([]*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Booking
	for _, booking := range r.bookings {
		if booking.SpaceID == spaceID {
			clone := *booking
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *InMemoryRepository) Save(_ context.Context, booking *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *booking
	r.bookings[booking.ID] = &clone
	return nil
}
