package billing

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no invoice or transaction matches the lookup.
var ErrNotFound = errors.New("billing: not found")

// Repository owns invoice and transaction state for the billing service.
// Only billing mutates it; every cross-service change arrives as an event.
type Repository interface {
	InvoiceByID(ctx context.Context, id string) (*Invoice, error)
	// InvoiceByBooking finds the invoice billing the given booking. Handlers
	// use it as the idempotency key for the invoice-per-booking upsert.
	InvoiceByBooking(ctx context.Context, bookingID string) (*Invoice, error)
	SaveInvoice(ctx context.Context, invoice *Invoice) error
	SaveTransaction(ctx context.Context, tx *Transaction) error
	TransactionsByInvoice(ctx context.Context, invoiceID string) ([]*Transaction, error)
}

// InMemoryRepository keeps billing state in process memory. It stands in for
// the real database in tests and local runs.
type InMemoryRepository struct {
	mu           sync.RWMutex
	invoices     map[string]*Invoice
	transactions map[string][]*Transaction
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		invoices:     make(map[string]*Invoice),
		transactions: make(map[string][]*Transaction),
	}
}

func (r *InMemoryRepository) InvoiceByID(_ context.Context, id string) (*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneInvoice(invoice), nil
}

func (r *InMemoryRepository) InvoiceByBooking(_ context.Context, bookingID string) (*Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, invoice := range r.invoices {
		for _, item := range invoice.Items {
			if item.BookingID == bookingID {
				return cloneInvoice(invoice), nil
			}
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) SaveInvoice(_ context.Context, invoice *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (r *InMemoryRepository) SaveTransaction(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *tx
	r.transactions[tx.InvoiceID] = append(r.transactions[tx.InvoiceID], &clone)
	return nil
}

func (r *InMemoryRepository) TransactionsByInvoice(_ context.Context, invoiceID string) ([]*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.transactions[invoiceID]
	result := make([]*Transaction, len(stored))
	for i, tx := range stored {
		clone := *tx
		result[i] = &clone
	}
	return result, nil
}

func cloneInvoice(invoice *Invoice) *Invoice {
	clone := *invoice
	clone.Items = make([]InvoiceItem, len(invoice.Items))
	copy(clone.Items, invoice.Items)
	return &clone
}
