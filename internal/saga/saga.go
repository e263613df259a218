// Package saga names the cross-service workflows that the choreography
// realises implicitly. Nothing here executes; the catalogue is the reviewable
// contract of who reacts to what, and the tests in this package hold the
// actual services to it.
package saga

import "github.com/smartcowork/choreo/internal/events"

// Step is one hop of a saga: a service consumes an event and may produce
// follow-on events.
type Step struct {
	Service     string
	Consumes    string
	Produces    []string
	Description string
}

// Saga is a multi-service business transaction without an atomic commit.
// Compensations describe the reactions that undo partial progress.
type Saga struct {
	Name          string
	Trigger       string
	Steps         []Step
	Compensations []Step
}

// Saga names.
const (
	BookingLifecycle        = "BookingLifecycle"
	SpaceOutageCompensation = "SpaceOutageCompensation"
)

// Catalogue lists every saga the platform runs.
func Catalogue() []Saga {
	return []Saga{
		{
			Name:    BookingLifecycle,
			Trigger: events.BookingCreated,
			Steps: []Step{
				{
					Service:     "billing",
					Consumes:    events.BookingCreated,
					Produces:    []string{events.InvoiceCreated},
					Description: "create a Pending invoice billing the stay",
				},
				{
					Service:     "notification",
					Consumes:    events.InvoiceCreated,
					Description: "notify the user about the new invoice",
				},
				{
					Service:     "booking",
					Consumes:    events.PaymentProcessed,
					Description: "a Completed payment confirms the Pending booking",
				},
				{
					Service:     "notification",
					Consumes:    events.InvoicePaid,
					Description: "notify the user that the invoice is settled",
				},
			},
			Compensations: []Step{
				{
					Service:     "billing",
					Consumes:    events.BookingCancelled,
					Produces:    []string{events.InvoiceCancelled, events.InvoiceRefundRequired},
					Description: "cancel the Pending invoice, or flag a Paid one for manual refund",
				},
				{
					Service:     "booking",
					Consumes:    events.PaymentRefunded,
					Description: "a refund reverts the booking payment status",
				},
			},
		},
		{
			Name:    SpaceOutageCompensation,
			Trigger: events.SpaceStatusChanged,
			Steps: []Step{
				{
					Service:     "booking",
					Consumes:    events.SpaceStatusChanged,
					Produces:    []string{events.BookingCancelled},
					Description: "cancel every active booking overlapping the outage window",
				},
				{
					Service:     "billing",
					Consumes:    events.BookingCancelled,
					Produces:    []string{events.InvoiceCancelled, events.InvoiceRefundRequired},
					Description: "cancel the invoices of the outage-cancelled bookings",
				},
				{
					Service:     "notification",
					Consumes:    events.BookingCancelled,
					Description: "notify the affected users",
				},
			},
		},
	}
}

// ByName looks a saga up in the catalogue.
func ByName(name string) (Saga, bool) {
	for _, saga := range Catalogue() {
		if saga.Name == name {
			return saga, true
		}
	}
	return Saga{}, false
}

// TriggeredBy returns the sagas started by the given routing key.
func TriggeredBy(routingKey string) []Saga {
	var result []Saga
	for _, saga := range Catalogue() {
		if saga.Trigger == routingKey {
			result = append(result, saga)
		}
	}
	return result
}
