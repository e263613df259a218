// Package choreo is the asynchronous choreography layer of the coworking
// platform. It sits on top of Watermill and wires routers, publishers,
// subscribers, and middleware so that the booking, billing, space,
// notification, and recommendation services can exchange domain events
// without calling each other directly.
//
// Bus hosts the Watermill router and exposes typed helpers:
// RegisterJSONHandler takes care of decoding, envelope validation, and
// metadata cloning, while Bus.Publish lets domain services emit events
// without touching low-level Watermill APIs. A minimal setup involves
// loading a Config, creating a Bus, registering handlers, and calling Run;
// the cmd/ directory holds one ready-made binary per service.
//
// # Transports
//
// Three transports ship out of the box:
//   - channel: In-memory Go channels for tests and single-process runs
//   - rabbitmq: AMQP topic exchanges with durable per-service queues
//   - kafka: High-throughput streaming with consumer groups
//
// Transports register themselves on import, e.g.
// _ "github.com/smartcowork/choreo/transport/rabbitmq". Config.PubSubSystem
// selects which one the Bus builds at startup. When messaging is disabled
// or the broker is unreachable, New returns an inert Bus and services keep
// serving their synchronous APIs.
//
// # Middleware
//
// The default middleware chain covers correlation ID injection, structured
// logging, envelope deduplication, OpenTelemetry tracing, Prometheus
// metrics, retry with exponential backoff, poison queue forwarding, and
// panic recovery. Custom middleware can be added via Dependencies.Middlewares.
//
// # Job Hooks
//
// JobHooksMiddleware provides OnJobStart, OnJobDone, and OnJobError
// callbacks for custom logging, metrics collection, and alerting around
// handler execution.
package choreo
