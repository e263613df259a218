package bus

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	loggingpkg "github.com/smartcowork/choreo/internal/bus/logging"
)

type handlerRegistration struct {
	Name         string
	ConsumeQueue string
	Subscriber   message.Subscriber
	PublishQueue string
	Publisher    message.Publisher
	Handler      message.HandlerFunc
}

// MessageHandlerRegistration wires a raw Watermill handler without typed helpers.
type MessageHandlerRegistration struct {
	Name         string
	ConsumeQueue string
	PublishQueue string
	Handler      message.HandlerFunc
	Subscriber   message.Subscriber
	Publisher    message.Publisher
}

// RegisterMessageHandler attaches the provided handler to the bus router.
func RegisterMessageHandler(b *Bus, cfg MessageHandlerRegistration) error {
	if b == nil {
		return errspkg.ErrBusRequired
	}

	return b.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeQueue: cfg.ConsumeQueue,
		PublishQueue: cfg.PublishQueue,
		Subscriber:   cfg.Subscriber,
		Publisher:    cfg.Publisher,
		Handler:      cfg.Handler,
	})
}

func (b *Bus) registerHandler(cfg handlerRegistration) error {
	if cfg.Handler == nil {
		return errspkg.ErrHandlerRequired
	}
	if cfg.ConsumeQueue == "" {
		return errspkg.ErrConsumeQueueRequired
	}
	if cfg.Name == "" {
		return errspkg.ErrHandlerNameRequired
	}

	// An inert bus validates registrations but declares nothing, so a
	// service wired identically runs with or without messaging.
	if b.disabled {
		b.Logger.Debug("Messaging disabled, skipping handler registration", loggingpkg.LogFields{
			"handler":       cfg.Name,
			"consume_queue": cfg.ConsumeQueue,
		})
		return nil
	}

	if cfg.Subscriber == nil {
		cfg.Subscriber = b.subscriber
	}
	if cfg.Publisher == nil {
		cfg.Publisher = b.publisher
	}

	stats := newHandlerStats(cfg.Name, cfg.ConsumeQueue, cfg.PublishQueue)
	info := &HandlerInfo{
		Name:         cfg.Name,
		ConsumeQueue: cfg.ConsumeQueue,
		PublishQueue: cfg.PublishQueue,
		Stats:        stats,
	}

	b.handlersMu.Lock()
	b.handlers = append(b.handlers, info)
	b.handlersMu.Unlock()

	cfg.Handler = wrapHandlerWithStats(cfg.Handler, stats, b.getErrorClassifier())

	if cfg.PublishQueue == "" {
		b.router.AddNoPublisherHandler(
			cfg.Name,
			cfg.ConsumeQueue,
			cfg.Subscriber,
			func(msg *message.Message) error {
				_, err := cfg.Handler(msg)
				return err
			},
		)
		return nil
	}

	b.router.AddHandler(
		cfg.Name,
		cfg.ConsumeQueue,
		cfg.Subscriber,
		cfg.PublishQueue,
		cfg.Publisher,
		cfg.Handler,
	)

	return nil
}

// Handlers returns a snapshot of the registered handlers and their stats.
func (b *Bus) Handlers() []*HandlerInfo {
	b.handlersMu.RLock()
	defer b.handlersMu.RUnlock()

	out := make([]*HandlerInfo, len(b.handlers))
	copy(out, b.handlers)
	return out
}

func wrapHandlerWithStats(handler message.HandlerFunc, stats *HandlerStats, classifier ErrorClassifier) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		stats.onMessageStart()
		start := time.Now()
		msgs, err := handler(msg)
		duration := time.Since(start)

		stats.onMessageFinish(duration, err, classifier)

		return msgs, err
	}
}
