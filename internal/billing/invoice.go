// Package billing reacts to booking lifecycle events with invoice state and
// settles invoices from payment transactions. Invoices are the only local
// state; real persistence sits behind the Repository interface.
package billing

import "time"

// ServiceName prefixes this service's consumer queues.
const ServiceName = "billing"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "Pending"
	InvoiceStatusPaid      InvoiceStatus = "Paid"
	InvoiceStatusCancelled InvoiceStatus = "Cancelled"
	InvoiceStatusOverdue   InvoiceStatus = "Overdue"
)

// Invoice bills one user for one or more bookings. Paid is reached when the
// settled transaction balance covers TotalAmount; a refund that drops the
// balance below TotalAmount reverts Paid to Pending.
type Invoice struct {
	ID          string
	UserID      string
	Status      InvoiceStatus
	TotalAmount float64
	DueDate     time.Time
	CreatedAt   time.Time
	PaidAt      time.Time
	Items       []InvoiceItem
}

// InvoiceItem is one billed booking. Quantity is the stay duration in hours.
type InvoiceItem struct {
	BookingID   string
	Description string
	Quantity    float64
	UnitPrice   float64
	TotalPrice  float64
}

// TransactionStatus mirrors the statuses carried on payment events.
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "Completed"
	TransactionFailed    TransactionStatus = "Failed"
	TransactionRefunded  TransactionStatus = "Refunded"
)

// Transaction is one payment attempt against an invoice. Amounts are stored
// positive; refunds subtract from the settled balance via their status.
type Transaction struct {
	ID              string
	InvoiceID       string
	Amount          float64
	Status          TransactionStatus
	PaymentMethod   string
	ReferenceNumber string
	ProcessedAt     time.Time
}

// ItemFor returns the invoice line billing the given booking, or nil.
func (i *Invoice) ItemFor(bookingID string) *InvoiceItem {
	for idx := range i.Items {
		if i.Items[idx].BookingID == bookingID {
			return &i.Items[idx]
		}
	}
	return nil
}

// RecomputeTotal refreshes TotalAmount from the line items.
func (i *Invoice) RecomputeTotal() {
	var total float64
	for _, item := range i.Items {
		total += item.TotalPrice
	}
	i.TotalAmount = total
}
