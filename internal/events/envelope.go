// Package events holds the canonical wire contract of the coworking
// platform: the message envelope, the topic and routing-key catalogue, and
// every payload exchanged between services. Payloads are flat JSON records;
// anything nested deeper than one level does not belong here.
package events

import (
	"time"

	"github.com/smartcowork/choreo/internal/bus/ids"
)

// Envelope is embedded in every event payload. ID is generated once at
// construction and never reused; it is the unit of deduplication on the
// consumer side. The transport stamps its own delivery ID separately.
type Envelope struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope stamps a fresh identity. Call it exactly once per publish.
func NewEnvelope() Envelope {
	return Envelope{
		ID:        ids.CreateUUID(),
		Timestamp: time.Now().UTC(),
	}
}

// EnvelopeID satisfies the Enveloped interface.
func (e Envelope) EnvelopeID() string { return e.ID }

// EnvelopeTime returns the domain-level creation instant.
func (e Envelope) EnvelopeTime() time.Time { return e.Timestamp }

// Enveloped is implemented by every event payload via the embedded Envelope.
type Enveloped interface {
	EnvelopeID() string
	EnvelopeTime() time.Time
}
