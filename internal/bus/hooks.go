package bus

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
)

// JobContext provides information about one handler invocation to hooks.
type JobContext struct {
	// HandlerName is the name of the handler processing the message.
	HandlerName string
	// Topic is the routing key the message was received from.
	Topic string
	// MessageUUID is the transport delivery identifier of the message.
	MessageUUID string
	// Metadata contains the message metadata.
	Metadata message.Metadata
	// Context is the context associated with the message.
	Context context.Context
	// StartedAt is when processing started.
	StartedAt time.Time
	// Duration is how long processing took (set in OnJobDone and OnJobError).
	Duration time.Duration
}

// JobHooks defines callbacks for handler lifecycle events.
// All hooks are optional; nil hooks are simply not called.
type JobHooks struct {
	// OnJobStart is called before the handler function is invoked.
	OnJobStart func(ctx JobContext)

	// OnJobDone is called when a handler completes successfully.
	OnJobDone func(ctx JobContext)

	// OnJobError is called when a handler returns an error.
	OnJobError func(ctx JobContext, err error)
}

// Merge combines two JobHooks into one that calls both.
// The hooks from other are called after the hooks from h.
func (h JobHooks) Merge(other JobHooks) JobHooks {
	return JobHooks{
		OnJobStart: chainStartHooks(h.OnJobStart, other.OnJobStart),
		OnJobDone:  chainDoneHooks(h.OnJobDone, other.OnJobDone),
		OnJobError: chainErrorHooks(h.OnJobError, other.OnJobError),
	}
}

func chainStartHooks(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainDoneHooks(a, b func(JobContext)) func(JobContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(JobContext, error)) func(JobContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx JobContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// JobHooksMiddleware creates a middleware that invokes the provided hooks
// around every handler invocation.
func JobHooksMiddleware(hooks JobHooks) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "job_hooks",
		Builder: func(b *Bus) (message.HandlerMiddleware, error) {
			return jobHooksMiddleware(hooks), nil
		},
	}
}

func jobHooksMiddleware(hooks JobHooks) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			startTime := time.Now()
			msgCtx := msg.Context()

			jobCtx := JobContext{
				HandlerName: message.HandlerNameFromCtx(msgCtx),
				Topic:       message.SubscribeTopicFromCtx(msgCtx),
				MessageUUID: msg.UUID,
				Metadata:    msg.Metadata,
				Context:     msgCtx,
				StartedAt:   startTime,
			}

			if hooks.OnJobStart != nil {
				hooks.OnJobStart(jobCtx)
			}

			msgs, err := h(msg)

			jobCtx.Duration = time.Since(startTime)

			if err != nil {
				if hooks.OnJobError != nil {
					hooks.OnJobError(jobCtx, err)
				}
			} else if hooks.OnJobDone != nil {
				hooks.OnJobDone(jobCtx)
			}

			return msgs, err
		}
	}
}

// LoggingHooks returns pre-built hooks that log handler lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) JobHooks {
	return JobHooks{
		OnJobStart: func(ctx JobContext) {
			logger.Info("Job started", loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
			})
		},
		OnJobDone: func(ctx JobContext) {
			logger.Info("Job completed", loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
		OnJobError: func(ctx JobContext, err error) {
			logger.Error("Job failed", err, loggingpkg.LogFields{
				"handler":      ctx.HandlerName,
				"topic":        ctx.Topic,
				"message_uuid": ctx.MessageUUID,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
	}
}
