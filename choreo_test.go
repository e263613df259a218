package choreo

import (
	"errors"
	"testing"
)

type pingEvent struct {
	Envelope
	Note string `json:"note"`
}

func TestHandlerExportsPropagateErrors(t *testing.T) {
	err := RegisterJSONHandler[*pingEvent, *pingEvent](nil, JSONHandlerRegistration[*pingEvent, *pingEvent]{})
	if !errors.Is(err, ErrBusRequired) {
		t.Fatalf("expected bus required error, got %v", err)
	}
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	if _, err := Marshal(payload); err != nil {
		t.Fatalf("marshal alias failed: %v", err)
	}
	if _, err := MarshalIndent(payload, "", "  "); err != nil {
		t.Fatalf("marshal indent alias failed: %v", err)
	}
	if err := Unmarshal([]byte(`{"hello":"world"}`), &payload); err != nil {
		t.Fatalf("unmarshal alias failed: %v", err)
	}
}

func TestMetadataExport(t *testing.T) {
	md := NewMetadata("key", "value")
	if md["key"] != "value" {
		t.Fatalf("expected metadata to contain key, got %#v", md)
	}
}

func TestEnvelopeExport(t *testing.T) {
	env := NewEnvelope()
	if env.EnvelopeID() == "" {
		t.Fatal("expected envelope to carry an ID")
	}

	var ev Enveloped = &pingEvent{Envelope: env}
	if ev.EnvelopeID() != env.EnvelopeID() {
		t.Fatalf("expected embedded envelope ID to surface, got %q", ev.EnvelopeID())
	}
}

func TestTopologyExports(t *testing.T) {
	if got := ExchangeFor("booking.created"); got != "booking_events" {
		t.Fatalf("expected booking exchange, got %q", got)
	}
	if got := QueueName("billing", "booking.created"); got != "billing_booking_created" {
		t.Fatalf("unexpected queue name %q", got)
	}
}

func TestIDExports(t *testing.T) {
	if len(CreateULID()) != 26 {
		t.Fatal("expected 26 character ULID")
	}
	if CreateUUID() == CreateUUID() {
		t.Fatal("expected unique UUIDs")
	}
}

func TestErrorCategoryConstants(t *testing.T) {
	if ErrorCategoryNone != "none" {
		t.Fatalf("expected ErrorCategoryNone to be 'none', got %q", ErrorCategoryNone)
	}
	if ErrorCategoryUnprocessable != "unprocessable" {
		t.Fatalf("expected ErrorCategoryUnprocessable to be 'unprocessable', got %q", ErrorCategoryUnprocessable)
	}
}
