package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcowork/choreo/internal/bus"
	"github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/logging"
	"github.com/smartcowork/choreo/internal/events"
)

// Invoices fall due 30 days after creation.
const invoiceDueAfter = 30 * 24 * time.Hour

// Service implements the billing reactions and payment operations. Local
// state is committed before any event leaves the process; a failed publish
// never rolls a write back.
type Service struct {
	repo     Repository
	producer bus.Producer
	log      logging.ServiceLogger

	now func() time.Time
}

func NewService(repo Repository, producer bus.Producer, log logging.ServiceLogger) *Service {
	return &Service{
		repo:     repo,
		producer: producer,
		log:      log.With(logging.LogFields{"service": ServiceName}),
		now:      time.Now,
	}
}

// EnsureInvoiceForBooking creates a Pending invoice billing the stay, one
// line item with Quantity = duration in hours. The lookup by booking ID makes
// redelivered booking.created events a no-op, so the returned event is nil
// when the invoice already exists.
func (s *Service) EnsureInvoiceForBooking(ctx context.Context, ev *events.BookingCreatedMessage) (*Invoice, *events.InvoiceCreatedMessage, error) {
	existing, err := s.repo.InvoiceByBooking(ctx, ev.BookingID)
	if err == nil {
		s.log.Debug("Invoice already exists for booking", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": existing.ID,
		})
		return existing, nil, nil
	}
	if err != ErrNotFound {
		return nil, nil, fmt.Errorf("failed to look up invoice for booking %s: %w", ev.BookingID, err)
	}

	quantity := ev.EndTime.Sub(ev.StartTime).Hours()
	total := quantity * ev.HourlyRate
	now := s.now().UTC()

	invoice := &Invoice{
		ID:          ids.CreateUUID(),
		UserID:      ev.UserID,
		Status:      InvoiceStatusPending,
		TotalAmount: total,
		DueDate:     now.Add(invoiceDueAfter),
		CreatedAt:   now,
		Items: []InvoiceItem{{
			BookingID:   ev.BookingID,
			Description: fmt.Sprintf("Booking of %s from %s to %s", ev.SpaceName, ev.StartTime.Format(time.RFC3339), ev.EndTime.Format(time.RFC3339)),
			Quantity:    quantity,
			UnitPrice:   ev.HourlyRate,
			TotalPrice:  total,
		}},
	}

	if err := s.repo.SaveInvoice(ctx, invoice); err != nil {
		return nil, nil, fmt.Errorf("failed to save invoice for booking %s: %w", ev.BookingID, err)
	}

	s.log.Info("Invoice created for booking", logging.LogFields{
		"booking_id":   ev.BookingID,
		"invoice_id":   invoice.ID,
		"total_amount": invoice.TotalAmount,
	})

	created := &events.InvoiceCreatedMessage{
		Envelope:    events.NewEnvelope(),
		InvoiceID:   invoice.ID,
		UserID:      invoice.UserID,
		TotalAmount: invoice.TotalAmount,
		Status:      string(invoice.Status),
		DueDate:     invoice.DueDate,
		Items: []events.InvoiceItemInfo{{
			BookingID:   ev.BookingID,
			Description: invoice.Items[0].Description,
			Amount:      invoice.Items[0].TotalPrice,
		}},
	}
	return invoice, created, nil
}

// ReviseInvoiceForBooking recomputes the line item billing a rescheduled
// booking. Only Pending invoices are revised; anything else is logged and
// acked, retrying cannot change the outcome.
func (s *Service) ReviseInvoiceForBooking(ctx context.Context, ev *events.BookingUpdatedMessage) error {
	invoice, err := s.repo.InvoiceByBooking(ctx, ev.BookingID)
	if err == ErrNotFound {
		s.log.Info("No invoice found for updated booking, skipping revision", logging.LogFields{
			"booking_id": ev.BookingID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up invoice for booking %s: %w", ev.BookingID, err)
	}

	if invoice.Status != InvoiceStatusPending {
		s.log.Info("Invoice is not pending, skipping revision", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
			"status":     string(invoice.Status),
		})
		return nil
	}

	item := invoice.ItemFor(ev.BookingID)
	if item == nil {
		s.log.Info("Invoice has no line item for updated booking, skipping revision", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
		})
		return nil
	}

	item.Quantity = ev.EndTime.Sub(ev.StartTime).Hours()
	item.TotalPrice = item.Quantity * item.UnitPrice
	invoice.RecomputeTotal()

	if err := s.repo.SaveInvoice(ctx, invoice); err != nil {
		return fmt.Errorf("failed to save revised invoice %s: %w", invoice.ID, err)
	}

	s.log.Info("Invoice revised after booking update", logging.LogFields{
		"booking_id":   ev.BookingID,
		"invoice_id":   invoice.ID,
		"total_amount": invoice.TotalAmount,
	})
	return nil
}

// CancelInvoiceForBooking cancels the Pending invoice of a cancelled booking.
// A Paid invoice is never cancelled automatically: it is flagged for manual
// refund via an invoice.refund_required event.
func (s *Service) CancelInvoiceForBooking(ctx context.Context, ev *events.BookingCancelledMessage) error {
	invoice, err := s.repo.InvoiceByBooking(ctx, ev.BookingID)
	if err == ErrNotFound {
		s.log.Info("No invoice found for cancelled booking", logging.LogFields{
			"booking_id": ev.BookingID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up invoice for booking %s: %w", ev.BookingID, err)
	}

	switch invoice.Status {
	case InvoiceStatusPending:
		invoice.Status = InvoiceStatusCancelled
		if err := s.repo.SaveInvoice(ctx, invoice); err != nil {
			return fmt.Errorf("failed to cancel invoice %s: %w", invoice.ID, err)
		}
		s.log.Info("Invoice cancelled after booking cancellation", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
		})
		return s.producer.Publish(ctx, events.InvoiceCancelled, &events.InvoiceCancelledMessage{
			Envelope:    events.NewEnvelope(),
			InvoiceID:   invoice.ID,
			UserID:      invoice.UserID,
			Reason:      ev.Reason,
			CancelledAt: s.now().UTC(),
		}, nil)

	case InvoiceStatusPaid:
		s.log.Info("Paid invoice flagged for manual refund", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
			"amount":     invoice.TotalAmount,
		})
		return s.producer.Publish(ctx, events.InvoiceRefundRequired, &events.RefundRequiredMessage{
			Envelope:  events.NewEnvelope(),
			InvoiceID: invoice.ID,
			BookingID: ev.BookingID,
			UserID:    invoice.UserID,
			Amount:    invoice.TotalAmount,
			Reason:    ev.Reason,
			FlaggedAt: s.now().UTC(),
		}, nil)

	default:
		s.log.Debug("Invoice already closed, nothing to cancel", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
			"status":     string(invoice.Status),
		})
		return nil
	}
}

// RecordPayment stores a completed transaction against the invoice, publishes
// payment.processed per billed booking, and marks the invoice Paid once the
// settled balance covers the total.
func (s *Service) RecordPayment(ctx context.Context, invoiceID string, amount float64, method, reference string) (*Transaction, error) {
	invoice, err := s.repo.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice %s: %w", invoiceID, err)
	}

	tx := &Transaction{
		ID:              ids.CreateUUID(),
		InvoiceID:       invoice.ID,
		Amount:          amount,
		Status:          TransactionCompleted,
		PaymentMethod:   method,
		ReferenceNumber: reference,
		ProcessedAt:     s.now().UTC(),
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction for invoice %s: %w", invoice.ID, err)
	}

	if err := s.publishPaymentPerBooking(ctx, events.PaymentProcessed, invoice, tx, events.PaymentStatusCompleted, 1); err != nil {
		return tx, err
	}

	balance, err := s.settledBalance(ctx, invoice.ID)
	if err != nil {
		return tx, err
	}
	if balance >= invoice.TotalAmount && invoice.Status == InvoiceStatusPending {
		invoice.Status = InvoiceStatusPaid
		invoice.PaidAt = tx.ProcessedAt
		if err := s.repo.SaveInvoice(ctx, invoice); err != nil {
			return tx, fmt.Errorf("failed to mark invoice %s paid: %w", invoice.ID, err)
		}
		s.log.Info("Invoice settled", logging.LogFields{
			"invoice_id": invoice.ID,
			"balance":    balance,
		})
		if err := s.producer.Publish(ctx, events.InvoicePaid, &events.InvoicePaidMessage{
			Envelope:    events.NewEnvelope(),
			InvoiceID:   invoice.ID,
			UserID:      invoice.UserID,
			TotalAmount: invoice.TotalAmount,
			PaidAt:      invoice.PaidAt,
		}, nil); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

// FailPayment stores a failed transaction and notifies consumers so booking
// can mark its payment status. The invoice itself does not change.
func (s *Service) FailPayment(ctx context.Context, invoiceID string, amount float64, method, reference string) (*Transaction, error) {
	invoice, err := s.repo.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice %s: %w", invoiceID, err)
	}

	tx := &Transaction{
		ID:              ids.CreateUUID(),
		InvoiceID:       invoice.ID,
		Amount:          amount,
		Status:          TransactionFailed,
		PaymentMethod:   method,
		ReferenceNumber: reference,
		ProcessedAt:     s.now().UTC(),
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction for invoice %s: %w", invoice.ID, err)
	}

	s.log.Info("Payment failed", logging.LogFields{
		"invoice_id": invoice.ID,
		"amount":     amount,
	})
	return tx, s.publishPaymentPerBooking(ctx, events.PaymentProcessed, invoice, tx, events.PaymentStatusFailed, 1)
}

// RefundPayment stores a refunded transaction, publishes payment.refunded per
// billed booking with a negative amount, and reverts a Paid invoice to
// Pending when the settled balance drops below the total.
func (s *Service) RefundPayment(ctx context.Context, invoiceID string, amount float64, method, reference string) (*Transaction, error) {
	invoice, err := s.repo.InvoiceByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invoice %s: %w", invoiceID, err)
	}

	tx := &Transaction{
		ID:              ids.CreateUUID(),
		InvoiceID:       invoice.ID,
		Amount:          amount,
		Status:          TransactionRefunded,
		PaymentMethod:   method,
		ReferenceNumber: reference,
		ProcessedAt:     s.now().UTC(),
	}
	if err := s.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to save transaction for invoice %s: %w", invoice.ID, err)
	}

	if err := s.publishPaymentPerBooking(ctx, events.PaymentRefunded, invoice, tx, events.PaymentStatusRefunded, -1); err != nil {
		return tx, err
	}

	balance, err := s.settledBalance(ctx, invoice.ID)
	if err != nil {
		return tx, err
	}
	if balance < invoice.TotalAmount && invoice.Status == InvoiceStatusPaid {
		invoice.Status = InvoiceStatusPending
		invoice.PaidAt = time.Time{}
		if err := s.repo.SaveInvoice(ctx, invoice); err != nil {
			return tx, fmt.Errorf("failed to revert invoice %s to pending: %w", invoice.ID, err)
		}
		s.log.Info("Invoice reverted to pending after refund", logging.LogFields{
			"invoice_id": invoice.ID,
			"balance":    balance,
		})
	}
	return tx, nil
}

// CheckPaymentReminder logs a reminder when a completed booking still has a
// Pending invoice. Reminder delivery is an external concern.
func (s *Service) CheckPaymentReminder(ctx context.Context, ev *events.BookingCompletedMessage) error {
	invoice, err := s.repo.InvoiceByBooking(ctx, ev.BookingID)
	if err == ErrNotFound {
		s.log.Debug("No invoice found for completed booking", logging.LogFields{
			"booking_id": ev.BookingID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up invoice for booking %s: %w", ev.BookingID, err)
	}

	if invoice.Status == InvoiceStatusPending {
		s.log.Info("Invoice still pending after booking completed, payment reminder due", logging.LogFields{
			"booking_id": ev.BookingID,
			"invoice_id": invoice.ID,
			"due_date":   invoice.DueDate,
		})
	}
	return nil
}

// publishPaymentPerBooking fans the transaction out as one event per billed
// booking, splitting the amount proportionally by line-item share. sign is -1
// for refunds so consumers see negative amounts.
func (s *Service) publishPaymentPerBooking(ctx context.Context, routingKey string, invoice *Invoice, tx *Transaction, status string, sign float64) error {
	for _, item := range invoice.Items {
		share := tx.Amount
		if invoice.TotalAmount > 0 && len(invoice.Items) > 1 {
			share = tx.Amount * (item.TotalPrice / invoice.TotalAmount)
		}
		err := s.producer.Publish(ctx, routingKey, &events.PaymentProcessedMessage{
			Envelope:        events.NewEnvelope(),
			PaymentID:       tx.ID,
			InvoiceID:       invoice.ID,
			BookingID:       item.BookingID,
			UserID:          invoice.UserID,
			Amount:          sign * share,
			PaymentMethod:   tx.PaymentMethod,
			Status:          status,
			ReferenceNumber: tx.ReferenceNumber,
			ProcessedAt:     tx.ProcessedAt,
		}, nil)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) settledBalance(ctx context.Context, invoiceID string) (float64, error) {
	transactions, err := s.repo.TransactionsByInvoice(ctx, invoiceID)
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions for invoice %s: %w", invoiceID, err)
	}

	var balance float64
	for _, tx := range transactions {
		switch tx.Status {
		case TransactionCompleted:
			balance += tx.Amount
		case TransactionRefunded:
			balance -= tx.Amount
		}
	}
	return balance, nil
}
