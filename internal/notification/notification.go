// Package notification turns choreography events into user-facing
// notifications. Delivery channels (mail, push) are external; this service
// only records what must be sent.
package notification

import (
	"context"
	"sync"
	"time"
)

// ServiceName prefixes this service's consumer queues.
const ServiceName = "notification"

// Kind classifies a notification for the delivery pipeline.
type Kind string

const (
	KindInvoiceCreated   Kind = "invoice_created"
	KindInvoicePaid      Kind = "invoice_paid"
	KindBookingCancelled Kind = "booking_cancelled"
)

// Notification is one message owed to a user.
type Notification struct {
	ID        string
	UserID    string
	Kind      Kind
	Subject   string
	Body      string
	CreatedAt time.Time
}

// Store persists notifications until the delivery pipeline picks them up.
type Store interface {
	Save(ctx context.Context, n *Notification) error
	ByUser(ctx context.Context, userID string) ([]*Notification, error)
}

// InMemoryStore keeps notifications in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byUser: make(map[string][]*Notification)}
}

func (s *InMemoryStore) Save(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *n
	s.byUser[n.UserID] = append(s.byUser[n.UserID], &clone)
	return nil
}

func (s *InMemoryStore) ByUser(_ context.Context, userID string) ([]*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.byUser[userID]
	result := make([]*Notification, len(stored))
	for i, n := range stored {
		clone := *n
		result[i] = &clone
	}
	return result, nil
}
