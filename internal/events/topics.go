package events

import "strings"

// Exchange names. Exchanges are durable topic exchanges, never deleted at
// runtime, and declared idempotently on every startup.
const (
	BookingExchange = "booking_events"
	BillingExchange = "billing_events"
	SpaceExchange   = "space_events"
)

// Routing keys. These must match exactly across services; a typo here breaks
// a choreography hop silently.
const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"

	InvoiceCreated        = "invoice.created"
	InvoicePaid           = "invoice.paid"
	InvoiceCancelled      = "invoice.cancelled"
	InvoiceRefundRequired = "invoice.refund_required"
	PaymentProcessed      = "payment.processed"
	PaymentRefunded       = "payment.refunded"

	SpaceCreated       = "space.created"
	SpaceStatusChanged = "space.status_changed"
	SpaceDeleted       = "space.deleted"
)

// exchangeByPrefix maps the first segment of a routing key to its exchange.
// Both invoice.* and payment.* belong to billing.
var exchangeByPrefix = map[string]string{
	"booking": BookingExchange,
	"invoice": BillingExchange,
	"payment": BillingExchange,
	"space":   SpaceExchange,
}

// ExchangeFor resolves the exchange a routing key is published to. Unknown
// prefixes fall back to "<prefix>_events" so operator topics (e.g. the
// poison topic) route without registration.
func ExchangeFor(routingKey string) string {
	prefix, _, _ := strings.Cut(routingKey, ".")
	if exchange, ok := exchangeByPrefix[prefix]; ok {
		return exchange
	}
	return prefix + "_events"
}

// QueueName derives the durable queue a service consumes a routing key from,
// following the <service>_<event_kind> convention: one queue per
// (service, event kind) pair so each reaction has its own ack/requeue
// lifecycle.
func QueueName(serviceName, routingKey string) string {
	return serviceName + "_" + strings.ReplaceAll(routingKey, ".", "_")
}
