package events

import "time"

// Events published by the billing service on billing_events.

// InvoiceItemInfo summarises one invoice line in outbound events. It stays
// one level deep on purpose; see the package comment.
type InvoiceItemInfo struct {
	BookingID   string  `json:"booking_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type InvoiceCreatedMessage struct {
	Envelope

	InvoiceID   string            `json:"invoice_id"`
	UserID      string            `json:"user_id"`
	TotalAmount float64           `json:"total_amount"`
	Status      string            `json:"status"`
	DueDate     time.Time         `json:"due_date"`
	Items       []InvoiceItemInfo `json:"items"`
}

type InvoicePaidMessage struct {
	Envelope

	InvoiceID   string    `json:"invoice_id"`
	UserID      string    `json:"user_id"`
	TotalAmount float64   `json:"total_amount"`
	PaidAt      time.Time `json:"paid_at"`
}

type InvoiceCancelledMessage struct {
	Envelope

	InvoiceID   string    `json:"invoice_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// PaymentProcessedMessage is published once per booking referenced by the
// paid invoice, under payment.processed for charges and payment.refunded for
// refunds (Amount is negative for refunds).
type PaymentProcessedMessage struct {
	Envelope

	PaymentID       string    `json:"payment_id"`
	InvoiceID       string    `json:"invoice_id"`
	BookingID       string    `json:"booking_id"`
	UserID          string    `json:"user_id"`
	Amount          float64   `json:"amount"`
	PaymentMethod   string    `json:"payment_method"`
	Status          string    `json:"status"`
	ReferenceNumber string    `json:"reference_number"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// Transaction statuses carried in PaymentProcessedMessage.Status.
const (
	PaymentStatusCompleted = "Completed"
	PaymentStatusFailed    = "Failed"
	PaymentStatusRefunded  = "Refunded"
)

// RefundRequiredMessage flags a paid invoice whose booking was cancelled.
// Refunds stay a manual step; this event routes the flag to an
// operator-visible queue instead of burying it in a log line.
type RefundRequiredMessage struct {
	Envelope

	InvoiceID string    `json:"invoice_id"`
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
}
