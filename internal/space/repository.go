package space

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no space or usage record matches the lookup.
var ErrNotFound = errors.New("space: not found")

// Repository owns space inventory and usage state.
type Repository interface {
	ByID(ctx context.Context, id string) (*Space, error)
	Save(ctx context.Context, space *Space) error
	Delete(ctx context.Context, id string) error
	SaveUsage(ctx context.Context, record *UsageRecord) error
	UsageBySpace(ctx context.Context, spaceID string) ([]*UsageRecord, error)
}

// InMemoryRepository keeps the inventory in process memory for tests and
// local runs.
type InMemoryRepository struct {
	mu     sync.RWMutex
	spaces map[string]*Space
	usage  map[string][]*UsageRecord
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		spaces: make(map[string]*Space),
		usage:  make(map[string][]*UsageRecord),
	}
}

func (r *InMemoryRepository) ByID(_ context.Context, id string) (*Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	space, ok := r.spaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *space
	return &clone, nil
}

func (r *InMemoryRepository) Save(_ context.Context, space *Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *space
	r.spaces[space.ID] = &clone
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[id]; !ok {
		return ErrNotFound
	}
	delete(r.spaces, id)
	return nil
}

func (r *InMemoryRepository) SaveUsage(_ context.Context, record *UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.usage[record.SpaceID]
	for i, existing := range records {
		if existing.BookingID == record.BookingID {
			clone := *record
			records[i] = &clone
			return nil
		}
	}
	clone := *record
	r.usage[record.SpaceID] = append(records, &clone)
	return nil
}

func (r *InMemoryRepository) UsageBySpace(_ context.Context, spaceID string) ([]*UsageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.usage[spaceID]
	result := make([]*UsageRecord, len(stored))
	for i, record := range stored {
		clone := *record
		result[i] = &clone
	}
	return result, nil
}
