package choreo

import (
	buspkg "github.com/smartcowork/choreo/internal/bus"
	configpkg "github.com/smartcowork/choreo/internal/bus/config"
	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
	idspkg "github.com/smartcowork/choreo/internal/bus/ids"
	jsoncodec "github.com/smartcowork/choreo/internal/bus/jsoncodec"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
	"github.com/smartcowork/choreo/internal/events"
	transportpkg "github.com/smartcowork/choreo/transport"
)

type (
	Config       = configpkg.Config
	Bus          = buspkg.Bus
	Dependencies = buspkg.Dependencies
	Producer     = buspkg.Producer

	Envelope  = events.Envelope
	Enveloped = events.Enveloped

	MessageHandlerRegistration            = buspkg.MessageHandlerRegistration
	JSONHandlerRegistration[T any, O any] = handlerpkg.JSONHandlerRegistration[T, O]
	JSONMessageContext[T any]             = handlerpkg.JSONMessageContext[T]
	JSONMessageOutput[T any]              = handlerpkg.JSONMessageOutput[T]
	JSONMessageHandler[T any, O any]      = handlerpkg.JSONMessageHandler[T, O]

	MiddlewareBuilder      = buspkg.MiddlewareBuilder
	MiddlewareRegistration = buspkg.MiddlewareRegistration
	RetryMiddlewareConfig  = buspkg.RetryMiddlewareConfig

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	UnprocessableEventError = errspkg.UnprocessableEventError

	HandlerInfo  = buspkg.HandlerInfo
	HandlerStats = buspkg.HandlerStats

	// Job lifecycle hooks
	JobContext = buspkg.JobContext
	JobHooks   = buspkg.JobHooks

	// Error classification
	ErrorClassifier = buspkg.ErrorClassifier
	ErrorCategory   = buspkg.ErrorCategory

	// Transport wiring. Import individual transports for their side-effect
	// registration, e.g. _ "github.com/smartcowork/choreo/transport/rabbitmq".
	Transport             = transportpkg.Transport
	TransportBuilder      = transportpkg.Builder
	TransportConfig       = transportpkg.Config
	TransportRegistry     = transportpkg.Registry
	TransportCapabilities = transportpkg.Capabilities
)

var (
	New        = buspkg.New
	LoadConfig = configpkg.Load

	RegisterMessageHandler = buspkg.RegisterMessageHandler

	DefaultMiddlewares      = buspkg.DefaultMiddlewares
	CorrelationIDMiddleware = buspkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = buspkg.LogMessagesMiddleware
	DedupMiddleware         = buspkg.DedupMiddleware
	TracerMiddleware        = buspkg.TracerMiddleware
	MetricsMiddleware       = buspkg.MetricsMiddleware
	RetryMiddleware         = buspkg.RetryMiddleware
	PoisonQueueMiddleware   = buspkg.PoisonQueueMiddleware
	RecovererMiddleware     = buspkg.RecovererMiddleware

	// Job lifecycle hooks
	JobHooksMiddleware = buspkg.JobHooksMiddleware
	LoggingHooks       = buspkg.LoggingHooks

	// Topology helpers shared by producers and consumers.
	ExchangeFor = events.ExchangeFor
	QueueName   = events.QueueName
	NewEnvelope = events.NewEnvelope

	// Transport registry
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
	GetCapabilities          = transportpkg.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrBusRequired                 = errspkg.ErrBusRequired
	ErrConfigRequired              = errspkg.ErrConfigRequired
	ErrLoggerRequired              = errspkg.ErrLoggerRequired
	ErrHandlerRequired             = errspkg.ErrHandlerRequired
	ErrConsumeQueueRequired        = errspkg.ErrConsumeQueueRequired
	ErrHandlerNameRequired         = errspkg.ErrHandlerNameRequired
	ErrConsumeMessageTypeRequired  = errspkg.ErrConsumeMessageTypeRequired
	ErrConsumeMessagePointerNeeded = errspkg.ErrConsumeMessagePointerNeeded
	ErrPublisherRequired           = errspkg.ErrPublisherRequired
	ErrRoutingKeyRequired          = errspkg.ErrRoutingKeyRequired
	ErrEventPayloadRequired        = errspkg.ErrEventPayloadRequired

	NewUnprocessableEventError = errspkg.NewUnprocessableEventError

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
	CreateUUID = idspkg.CreateUUID
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyContentType   = metadatapkg.KeyContentType
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyEventSchema   = metadatapkg.KeyEventSchema
	MetadataKeyEnvelopeID    = metadatapkg.KeyEnvelopeID
	MetadataKeyPublishedAt   = metadatapkg.KeyPublishedAt
	MetadataKeySourceService = metadatapkg.KeySourceService
	MetadataKeyTimestamp     = metadatapkg.KeyTimestamp
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone          = buspkg.ErrorCategoryNone
	ErrorCategoryUnprocessable = buspkg.ErrorCategoryUnprocessable
	ErrorCategoryTransient     = buspkg.ErrorCategoryTransient
	ErrorCategoryOther         = buspkg.ErrorCategoryOther
)

func RegisterJSONHandler[T any, O any](b *Bus, cfg JSONHandlerRegistration[T, O]) error {
	return buspkg.RegisterJSONHandler(b, cfg)
}
