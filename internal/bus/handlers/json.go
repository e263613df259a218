// Package handlers contains the typed JSON handler plumbing that converts
// choreography handlers into Watermill handlers.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	idspkg "github.com/smartcowork/choreo/internal/bus/ids"
	"github.com/smartcowork/choreo/internal/bus/jsoncodec"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
)

// JSONHandlerRegistration wires a typed JSON handler to the router.
// ConsumeQueue is the routing key the handler reacts to; PublishQueue, when
// set, is where returned events are published.
type JSONHandlerRegistration[T any, O any] struct {
	Name         string
	ConsumeQueue string
	PublishQueue string
	Handler      JSONMessageHandler[T, O]
}

// JSONMessageContext exposes the incoming payload and metadata for JSON handlers.
type JSONMessageContext[T any] struct {
	Payload  T
	Metadata metadatapkg.Metadata
	Logger   loggingpkg.ServiceLogger
}

// CloneMetadata copies the current metadata map so handlers can mutate headers safely.
func (c JSONMessageContext[T]) CloneMetadata() metadatapkg.Metadata {
	return c.Metadata.Clone()
}

// JSONMessageOutput represents an event emitted by a JSON handler.
type JSONMessageOutput[T any] struct {
	Message  T
	Metadata metadatapkg.Metadata
}

// JSONMessageHandler processes a JSON payload and returns the events to publish.
type JSONMessageHandler[T any, O any] func(ctx context.Context, event JSONMessageContext[T]) ([]JSONMessageOutput[O], error)

// BuildJSONHandler converts a typed JSON handler into a Watermill handler.
// A payload that cannot be decoded into T is reported as an
// UnprocessableEventError so the pipeline poisons it instead of requeueing.
func BuildJSONHandler[T any, O any](handler JSONMessageHandler[T, O], logger loggingpkg.ServiceLogger) (message.HandlerFunc, error) {
	if handler == nil {
		return nil, errspkg.ErrHandlerRequired
	}

	prototypeFactory, err := jsonPrototypeFactory[T]()
	if err != nil {
		return nil, err
	}

	return func(msg *message.Message) ([]*message.Message, error) {
		typed := prototypeFactory()

		if err := jsoncodec.Unmarshal(msg.Payload, typed); err != nil {
			return nil, errspkg.NewUnprocessableEventError(msg.Payload, err)
		}

		ctx := JSONMessageContext[T]{
			Payload:  typed,
			Metadata: metadatapkg.FromWatermill(msg.Metadata),
			Logger:   logger,
		}

		outgoing, err := handler(msg.Context(), ctx)
		if err != nil {
			return nil, err
		}

		return convertJSONOutputs(outgoing, ctx.Metadata)
	}, nil
}

func jsonPrototypeFactory[T any]() (func() T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return nil, errspkg.ErrConsumeMessageTypeRequired
	}
	if typ.Kind() != reflect.Ptr {
		return nil, errspkg.ErrConsumeMessagePointerNeeded
	}
	elem := typ.Elem()
	return func() T {
		clone := reflect.New(elem).Interface()
		return clone.(T)
	}, nil
}

func convertJSONOutputs[T any](outputs []JSONMessageOutput[T], fallback metadatapkg.Metadata) ([]*message.Message, error) {
	if len(outputs) == 0 {
		return nil, nil
	}

	result := make([]*message.Message, len(outputs))
	for i, out := range outputs {
		if reflect.ValueOf(out.Message).IsZero() {
			return nil, errors.New("json handler emitted zero-value message")
		}

		payload, err := jsoncodec.Marshal(out.Message)
		if err != nil {
			return nil, err
		}

		md := out.Metadata
		if md == nil {
			md = fallback
		}
		if md == nil {
			md = metadatapkg.Metadata{}
		}
		md = md.Clone()
		md[metadatapkg.KeyContentType] = "application/json"
		md[metadatapkg.KeyEventSchema] = fmt.Sprintf("%T", out.Message)
		if enveloped, ok := any(out.Message).(interface{ EnvelopeID() string }); ok {
			md[metadatapkg.KeyEnvelopeID] = enveloped.EnvelopeID()
		}

		msg := message.NewMessage(idspkg.CreateULID(), payload)
		msg.Metadata = metadatapkg.ToWatermill(md)
		result[i] = msg
	}

	return result, nil
}
