// Package recommend collects the raw signals the recommendation engine
// scores offline: per-user booking activity and the space catalogue. The
// scoring heuristics themselves are an external collaborator.
package recommend

import (
	"context"
	"sync"
	"time"
)

// ServiceName prefixes this service's consumer queues.
const ServiceName = "recommend"

// ActivityKind tags one observed user action.
type ActivityKind string

const (
	ActivityBookingCreated   ActivityKind = "booking_created"
	ActivityBookingCompleted ActivityKind = "booking_completed"
)

// Activity is one user interaction with a space.
type Activity struct {
	UserID     string
	BookingID  string
	SpaceID    string
	Kind       ActivityKind
	ObservedAt time.Time
}

// CatalogEntry mirrors the bookable inventory for the scorer.
type CatalogEntry struct {
	SpaceID    string
	Name       string
	Type       string
	Capacity   int
	HourlyRate float64
	Location   string
}

// Store persists the signals until the scorer consumes them.
type Store interface {
	SaveActivity(ctx context.Context, a *Activity) error
	ActivityByUser(ctx context.Context, userID string) ([]*Activity, error)
	SaveCatalogEntry(ctx context.Context, entry *CatalogEntry) error
	Catalog(ctx context.Context) ([]*CatalogEntry, error)
}

// InMemoryStore keeps the signals in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	activity map[string][]*Activity
	catalog  map[string]*CatalogEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		activity: make(map[string][]*Activity),
		catalog:  make(map[string]*CatalogEntry),
	}
}

func (s *InMemoryStore) SaveActivity(_ context.Context, a *Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *a
	s.activity[a.UserID] = append(s.activity[a.UserID], &clone)
	return nil
}

func (s *InMemoryStore) ActivityByUser(_ context.Context, userID string) ([]*Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.activity[userID]
	result := make([]*Activity, len(stored))
	for i, a := range stored {
		clone := *a
		result[i] = &clone
	}
	return result, nil
}

func (s *InMemoryStore) SaveCatalogEntry(_ context.Context, entry *CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *entry
	s.catalog[entry.SpaceID] = &clone
	return nil
}

func (s *InMemoryStore) Catalog(_ context.Context) ([]*CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*CatalogEntry, 0, len(s.catalog))
	for _, entry := range s.catalog {
		clone := *entry
		result = append(result, &clone)
	}
	return result, nil
}
