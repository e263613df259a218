package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcowork/choreo/internal/bus/logging"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
	"github.com/smartcowork/choreo/internal/events"
)

type capturingProducer struct {
	mu        sync.Mutex
	published map[string][]events.Enveloped
	err       error
}

func newCapturingProducer() *capturingProducer {
	return &capturingProducer{published: make(map[string][]events.Enveloped)}
}

func (p *capturingProducer) Publish(_ context.Context, routingKey string, event events.Enveloped, _ metadatapkg.Metadata) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published[routingKey] = append(p.published[routingKey], event)
	return nil
}

func (p *capturingProducer) byKey(routingKey string) []events.Enveloped {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[routingKey]
}

var testTime = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestService() (*Service, *InMemoryRepository, *capturingProducer) {
	repo := NewInMemoryRepository()
	producer := newCapturingProducer()
	svc := NewService(repo, producer, logging.NewWatermillServiceLogger(watermill.NopLogger{}))
	svc.now = func() time.Time { return testTime }
	return svc, repo, producer
}

func newBookingCreated() *events.BookingCreatedMessage {
	return &events.BookingCreatedMessage{
		Envelope:   events.NewEnvelope(),
		BookingID:  "booking-1",
		UserID:     "user-1",
		SpaceID:    "space-1",
		SpaceName:  "Focus Room",
		HourlyRate: 20,
		StartTime:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Status:     "Pending",
	}
}

func TestEnsureInvoiceForBooking(t *testing.T) {
	svc, _, _ := newTestService()

	invoice, created, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)
	require.NotNil(t, invoice)
	require.NotNil(t, created)

	assert.Equal(t, InvoiceStatusPending, invoice.Status)
	assert.Equal(t, 40.0, invoice.TotalAmount)
	assert.Equal(t, testTime.Add(30*24*time.Hour), invoice.DueDate)
	require.Len(t, invoice.Items, 1)
	assert.Equal(t, "booking-1", invoice.Items[0].BookingID)
	assert.Equal(t, 2.0, invoice.Items[0].Quantity)
	assert.Equal(t, 20.0, invoice.Items[0].UnitPrice)
	assert.Equal(t, 40.0, invoice.Items[0].TotalPrice)

	assert.Equal(t, invoice.ID, created.InvoiceID)
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, 40.0, created.TotalAmount)
	assert.NotEmpty(t, created.EnvelopeID())
}

func TestEnsureInvoiceForBooking_Idempotent(t *testing.T) {
	svc, _, _ := newTestService()
	ev := newBookingCreated()

	first, created, err := svc.EnsureInvoiceForBooking(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, created)

	second, recreated, err := svc.EnsureInvoiceForBooking(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, recreated, "redelivery must not emit a second invoice.created")
	assert.Equal(t, first.ID, second.ID)
}

func TestReviseInvoiceForBooking(t *testing.T) {
	svc, _, _ := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	err = svc.ReviseInvoiceForBooking(context.Background(), &events.BookingUpdatedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
		StartTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	revised, err := svc.repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, revised.Items[0].Quantity)
	assert.Equal(t, 60.0, revised.Items[0].TotalPrice)
	assert.Equal(t, 60.0, revised.TotalAmount)
}

func TestReviseInvoiceForBooking_SkipsNonPending(t *testing.T) {
	svc, repo, _ := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	invoice.Status = InvoiceStatusPaid
	require.NoError(t, repo.SaveInvoice(context.Background(), invoice))

	err = svc.ReviseInvoiceForBooking(context.Background(), &events.BookingUpdatedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
		StartTime: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	unchanged, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, unchanged.TotalAmount)
}

func TestReviseInvoiceForBooking_MissingInvoiceIsAcked(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.ReviseInvoiceForBooking(context.Background(), &events.BookingUpdatedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "ghost",
	})
	assert.NoError(t, err, "retrying cannot make the invoice appear")
}

func TestCancelInvoiceForBooking_Pending(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	err = svc.CancelInvoiceForBooking(context.Background(), &events.BookingCancelledMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
		Reason:    "cancelled by user",
	})
	require.NoError(t, err)

	cancelled, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusCancelled, cancelled.Status)

	published := producer.byKey(events.InvoiceCancelled)
	require.Len(t, published, 1)
	assert.Equal(t, "cancelled by user", published[0].(*events.InvoiceCancelledMessage).Reason)
	assert.Empty(t, producer.byKey(events.InvoiceRefundRequired))
}

func TestCancelInvoiceForBooking_PaidFlagsManualRefund(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	invoice.Status = InvoiceStatusPaid
	require.NoError(t, repo.SaveInvoice(context.Background(), invoice))

	err = svc.CancelInvoiceForBooking(context.Background(), &events.BookingCancelledMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
		Reason:    "cancelled by user",
	})
	require.NoError(t, err)

	flagged, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, flagged.Status, "paid invoices are never cancelled automatically")

	published := producer.byKey(events.InvoiceRefundRequired)
	require.Len(t, published, 1)
	refund := published[0].(*events.RefundRequiredMessage)
	assert.Equal(t, invoice.ID, refund.InvoiceID)
	assert.Equal(t, 40.0, refund.Amount)
	assert.Empty(t, producer.byKey(events.InvoiceCancelled))
}

func TestCancelInvoiceForBooking_MissingInvoiceIsAcked(t *testing.T) {
	svc, _, producer := newTestService()

	err := svc.CancelInvoiceForBooking(context.Background(), &events.BookingCancelledMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "ghost",
	})
	require.NoError(t, err)
	assert.Empty(t, producer.byKey(events.InvoiceCancelled))
}

func TestRecordPayment_SettlesInvoice(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	tx, err := svc.RecordPayment(context.Background(), invoice.ID, 40, "card", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, TransactionCompleted, tx.Status)

	paid, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, paid.Status)
	assert.Equal(t, testTime, paid.PaidAt)

	processed := producer.byKey(events.PaymentProcessed)
	require.Len(t, processed, 1)
	payment := processed[0].(*events.PaymentProcessedMessage)
	assert.Equal(t, "booking-1", payment.BookingID)
	assert.Equal(t, events.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, 40.0, payment.Amount)

	require.Len(t, producer.byKey(events.InvoicePaid), 1)
}

func TestRecordPayment_PartialKeepsPending(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), invoice.ID, 15, "card", "ref-1")
	require.NoError(t, err)

	pending, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPending, pending.Status)
	assert.Empty(t, producer.byKey(events.InvoicePaid))

	// A second payment covering the remainder settles it.
	_, err = svc.RecordPayment(context.Background(), invoice.ID, 25, "card", "ref-2")
	require.NoError(t, err)

	paid, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, paid.Status)
}

func TestFailPayment(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	tx, err := svc.FailPayment(context.Background(), invoice.ID, 40, "card", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, TransactionFailed, tx.Status)

	unchanged, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPending, unchanged.Status)

	processed := producer.byKey(events.PaymentProcessed)
	require.Len(t, processed, 1)
	assert.Equal(t, events.PaymentStatusFailed, processed[0].(*events.PaymentProcessedMessage).Status)
}

func TestRefundPayment_RevertsPaidToPending(t *testing.T) {
	svc, repo, producer := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), invoice.ID, 40, "card", "ref-1")
	require.NoError(t, err)

	_, err = svc.RefundPayment(context.Background(), invoice.ID, 40, "card", "ref-2")
	require.NoError(t, err)

	reverted, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPending, reverted.Status)
	assert.True(t, reverted.PaidAt.IsZero())

	refunded := producer.byKey(events.PaymentRefunded)
	require.Len(t, refunded, 1)
	assert.Equal(t, -40.0, refunded[0].(*events.PaymentProcessedMessage).Amount)
}

func TestRefundPayment_PartialKeepsPaid(t *testing.T) {
	svc, repo, _ := newTestService()
	invoice, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), invoice.ID, 80, "card", "ref-1")
	require.NoError(t, err)

	_, err = svc.RefundPayment(context.Background(), invoice.ID, 20, "card", "ref-2")
	require.NoError(t, err)

	invoiceAfter, err := repo.InvoiceByID(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, InvoiceStatusPaid, invoiceAfter.Status, "balance still covers the total")
}

func TestCheckPaymentReminder(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.EnsureInvoiceForBooking(context.Background(), newBookingCreated())
	require.NoError(t, err)

	err = svc.CheckPaymentReminder(context.Background(), &events.BookingCompletedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "booking-1",
	})
	assert.NoError(t, err)

	err = svc.CheckPaymentReminder(context.Background(), &events.BookingCompletedMessage{
		Envelope:  events.NewEnvelope(),
		BookingID: "ghost",
	})
	assert.NoError(t, err)
}
