// Package bus implements the shared messaging runtime used by every service
// in the platform: one Watermill router per process, a publisher/subscriber
// pair from the configured transport, and the default middleware chain
// (correlation, logging, dedup, tracing, metrics, retry, poison routing).
//
// A bus built from a disabled or unreachable configuration is inert: every
// publish is a logged no-op, handler registration declares nothing, and Run
// blocks until the context ends. Services must keep working without
// messaging.
package bus

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/smartcowork/choreo/internal/bus/config"
	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
	transportpkg "github.com/smartcowork/choreo/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// Dependencies holds the optional collaborators a Bus can use.
// Zero values select the defaults.
type Dependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportRegistry         *transportpkg.Registry
	ErrorClassifier           ErrorClassifier
	MetricsRegisterer         prometheus.Registerer // Defaults to prometheus.DefaultRegisterer.
}

// Bus wires a Watermill router, publisher, subscriber, and middleware chain
// for one service process.
type Bus struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	disabled bool

	handlers   []*HandlerInfo
	handlersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	errorClassifier   ErrorClassifier
	dedup             *dedupCache
	metricsRegisterer prometheus.Registerer
}

// New constructs a Bus for the supplied configuration. Register handlers on
// the returned Bus before calling Run.
//
// When messaging is disabled, or the transport cannot be built (broker
// unreachable past the connect retry budget), New logs the condition and
// returns an inert bus instead of an error. The hosting service keeps
// serving its synchronous API either way.
func New(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps Dependencies) (*Bus, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	b := &Bus{
		Conf:              conf,
		Logger:            log,
		dedup:             newDedupCache(conf.DedupCacheSize),
		metricsRegisterer: deps.MetricsRegisterer,
	}

	if deps.ErrorClassifier != nil {
		b.errorClassifier = deps.ErrorClassifier
	} else {
		b.errorClassifier = defaultErrorClassifier
	}

	if !conf.Enabled {
		log.Info("Messaging disabled, event bus is inert", loggingpkg.LogFields{
			"service": conf.ServiceName,
		})
		b.disabled = true
		return b, nil
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event bus", loggingpkg.LogFields{
		"pubsub_system": conf.PubSubSystem,
		"service":       conf.ServiceName,
	})

	registry := deps.TransportRegistry
	if registry == nil {
		registry = transportpkg.DefaultRegistry
	}
	tr, err := registry.Build(ctx, conf, wmLogger)
	if err != nil {
		log.Error("Transport unavailable, continuing with messaging disabled", err, loggingpkg.LogFields{
			"pubsub_system": conf.PubSubSystem,
			"service":       conf.ServiceName,
		})
		b.disabled = true
		return b, nil
	}

	b.publisher = tr.Publisher
	b.subscriber = tr.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	b.router = router
	b.router.AddPlugin(plugin.SignalsHandler)

	if err := b.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}

	return b, nil
}

// Disabled reports whether the bus is running in inert no-op mode.
func (b *Bus) Disabled() bool {
	return b == nil || b.disabled
}

// Run starts the consumer loops and blocks until the context is cancelled.
// An inert bus blocks without consuming anything so a service main loop
// behaves identically with and without messaging.
func (b *Bus) Run(ctx context.Context) error {
	if b.Disabled() {
		<-ctx.Done()
		return nil
	}
	b.startHTTPServers()
	return routerRun(b.router, ctx)
}

// Running returns a channel that is closed once the router is running.
// For an inert bus the channel is closed immediately.
func (b *Bus) Running() <-chan struct{} {
	if b.Disabled() {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return b.router.Running()
}

// Close shuts down the router and transport connections.
func (b *Bus) Close() error {
	if b.Disabled() {
		return nil
	}
	return b.router.Close()
}

func (b *Bus) registerConfiguredMiddlewares(deps Dependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := b.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

func (b *Bus) registerer() prometheus.Registerer {
	if b.metricsRegisterer != nil {
		return b.metricsRegisterer
	}
	return prometheus.DefaultRegisterer
}

func (b *Bus) getErrorClassifier() ErrorClassifier {
	if b.errorClassifier == nil {
		return defaultErrorClassifier
	}
	return b.errorClassifier
}

// RegisterHTTPHandler mounts an HTTP handler on the given port. Servers are
// started lazily by Run. Used by the metrics middleware to expose /metrics.
func (b *Bus) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	b.httpServersMu.Lock()
	defer b.httpServersMu.Unlock()

	if b.httpServers == nil {
		b.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := b.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		b.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (b *Bus) startHTTPServers() {
	b.httpServersMu.Lock()
	defer b.httpServersMu.Unlock()

	for port, mux := range b.httpServers {
		addr := fmt.Sprintf(":%d", port)
		b.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				b.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}
