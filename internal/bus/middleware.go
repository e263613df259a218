package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	idspkg "github.com/smartcowork/choreo/internal/bus/ids"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
	metadatapkg "github.com/smartcowork/choreo/internal/bus/metadata"
)

// MiddlewareBuilder constructs a handler middleware using the provided bus instance.
type MiddlewareBuilder func(*Bus) (message.HandlerMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Bus router.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    MiddlewareBuilder
}

// RetryMiddlewareConfig customises the retry middleware behaviour.
type RetryMiddlewareConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RetryIf         func(error) bool
}

func (cfg RetryMiddlewareConfig) withDefaults() RetryMiddlewareConfig {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 16 * time.Second
	}
	return cfg
}

// DefaultMiddlewares returns the standard middleware chain used by the Bus
// constructor. Order matters: dedup runs before any side effects, retry
// wraps the handler, and the poison middleware catches what retry gave up on.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(nil),
		DedupMiddleware(),
		TracerMiddleware(),
		MetricsMiddleware(),
		RetryMiddleware(RetryMiddlewareConfig{}),
		PoisonQueueMiddleware(nil),
		RecovererMiddleware(),
	}
}

// MetricsMiddleware adds Prometheus metrics to the handler.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			if !b.Conf.MetricsEnabled {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				b.registerer(),
				"choreo",
				b.Conf.PubSubSystem,
			)

			metricsBuilder.AddPrometheusRouterMetrics(b.router)

			if b.Conf.MetricsPort > 0 {
				b.RegisterHTTPHandler(b.Conf.MetricsPort, "/metrics", promhttp.Handler())
			}

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// CorrelationIDMiddleware ensures each processed message carries a correlation identifier.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			return b.correlationIDMiddleware(), nil
		},
	}
}

// LogMessagesMiddleware logs the full payload and metadata of handled messages.
func LogMessagesMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			l := logger
			if l == nil {
				l = b.Logger
			}
			if l == nil {
				return nil, errors.New("log messages middleware requires a logger")
			}
			return b.logMessagesMiddleware(l), nil
		},
	}
}

// DedupMiddleware acknowledges redeliveries of envelopes that were already
// processed by this instance, without running the handler again.
func DedupMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "dedup",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			return b.dedupMiddleware(), nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			return b.tracerMiddleware(), nil
		},
	}
}

// RetryMiddleware retries handler execution using the provided configuration.
// Zero values fall back to the bus config, then to built-in defaults.
// Unprocessable events are never retried; they go straight to poison routing.
func RetryMiddleware(cfg RetryMiddlewareConfig) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "retry",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			resolved := cfg
			if resolved.MaxRetries <= 0 {
				resolved.MaxRetries = b.Conf.RetryMaxRetries
			}
			if resolved.InitialInterval <= 0 {
				resolved.InitialInterval = b.Conf.RetryInitialInterval
			}
			if resolved.MaxInterval <= 0 {
				resolved.MaxInterval = b.Conf.RetryMaxInterval
			}
			return b.retryMiddlewareWithConfig(resolved), nil
		},
	}
}

// PoisonQueueMiddleware publishes messages that match the supplied filter to the configured poison topic.
func PoisonQueueMiddleware(filter func(error) bool) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "poison_queue",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			f := filter
			if f == nil {
				f = isUnprocessable
			}
			return b.poisonMiddlewareWithFilter(f)
		},
	}
}

// RecovererMiddleware converts panics into handler errors so they can be retried or poisoned.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (b *Bus) RegisterMiddleware(cfg MiddlewareRegistration) error {
	if b.Disabled() {
		return nil
	}
	if b.router == nil {
		return errors.New("router is not initialised")
	}

	var mw message.HandlerMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(b)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	b.router.AddMiddleware(mw)
	return nil
}

func isUnprocessable(err error) bool {
	var unprocessable *errspkg.UnprocessableEventError
	return errors.As(err, &unprocessable)
}

// correlationIDMiddleware injects a correlation ID into the message metadata when missing.
func (b *Bus) correlationIDMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			if _, ok := msg.Metadata[metadatapkg.KeyCorrelationID]; !ok {
				msg.Metadata[metadatapkg.KeyCorrelationID] = idspkg.CreateULID()
			}
			return h(msg)
		}
	}
}

// dedupMiddleware acks envelopes that were already processed. Keyed on the
// domain envelope ID, not the transport delivery UUID, so a redelivered
// message with a fresh delivery ID is still recognised. The handler name is
// part of the key: the same envelope fanning out to several handlers is not
// a duplicate.
func (b *Bus) dedupMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			envelopeID := msg.Metadata.Get(metadatapkg.KeyEnvelopeID)
			if envelopeID == "" {
				return h(msg)
			}
			key := message.HandlerNameFromCtx(msg.Context()) + "/" + envelopeID

			if b.dedup.Begin(key) {
				b.Logger.Debug("Skipping duplicate envelope", loggingpkg.LogFields{
					"envelope_id":  envelopeID,
					"message_uuid": msg.UUID,
				})
				return nil, nil
			}

			msgs, err := h(msg)
			if err != nil {
				// The handler may be retried or the message redelivered;
				// only successful processing marks the envelope as seen.
				b.dedup.Forget(key)
				return msgs, err
			}
			b.dedup.Done(key)
			return msgs, nil
		}
	}
}

// poisonMiddlewareWithFilter publishes poison messages based on the provided
// filter and counts them per source topic and handler.
func (b *Bus) poisonMiddlewareWithFilter(filter func(err error) bool) (message.HandlerMiddleware, error) {
	if b.Conf == nil {
		return nil, errors.New("bus config is required for poison queue middleware")
	}
	if b.Conf.PoisonTopic == "" {
		return nil, nil
	}
	if b.publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}

	poison, err := middleware.PoisonQueueWithFilter(
		b.publisher,
		b.Conf.PoisonTopic,
		filter,
	)
	if err != nil {
		return nil, err
	}

	counter, err := newPoisonCounter(b.registerer())
	if err != nil {
		return nil, err
	}

	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			var handlerErr error
			observed := func(m *message.Message) ([]*message.Message, error) {
				msgs, err := h(m)
				handlerErr = err
				return msgs, err
			}

			msgs, err := poison(observed)(msg)
			// A matching handler error that the poison middleware swallowed
			// means the message was published to the poison topic.
			if err == nil && handlerErr != nil && filter(handlerErr) {
				counter.record(
					message.SubscribeTopicFromCtx(msg.Context()),
					message.HandlerNameFromCtx(msg.Context()),
				)
			}
			return msgs, err
		}
	}, nil
}

// logMessagesMiddleware logs all processed messages with their metadata.
func (b *Bus) logMessagesMiddleware(logger loggingpkg.ServiceLogger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			logger.Debug("Processing message", loggingpkg.LogFields{
				"message_uuid": msg.UUID,
				"payload":      string(msg.Payload),
				"metadata":     msg.Metadata,
			})
			return h(msg)
		}
	}
}

func (b *Bus) retryMiddlewareWithConfig(cfg RetryMiddlewareConfig) message.HandlerMiddleware {
	normalized := cfg.withDefaults()
	return middleware.Retry{
		MaxRetries:      normalized.MaxRetries,
		InitialInterval: normalized.InitialInterval,
		MaxInterval:     normalized.MaxInterval,
		ShouldRetry: func(params middleware.RetryParams) bool {
			if isUnprocessable(params.Err) {
				return false
			}
			if normalized.RetryIf != nil {
				return normalized.RetryIf(params.Err)
			}
			return true
		},
	}.Middleware
}

// tracerMiddleware wraps message handling with an OpenTelemetry span.
func (b *Bus) tracerMiddleware() message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			tracer := otel.Tracer("choreo-bus")
			ctx, span := tracer.Start(
				msg.Context(),
				"ProcessMessage",
				trace.WithSpanKind(trace.SpanKindConsumer),
			)
			defer span.End()
			msg.SetContext(ctx)

			span.SetAttributes(
				attribute.String("message.uuid", msg.UUID),
				attribute.String("message.metadata", fmt.Sprintf("%v", msg.Metadata)),
			)
			return h(msg)
		}
	}
}
