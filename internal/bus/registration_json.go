package bus

import (
	errspkg "github.com/smartcowork/choreo/internal/bus/errors"
	handlerpkg "github.com/smartcowork/choreo/internal/bus/handlers"
)

// RegisterJSONHandler converts the typed JSON handler into a Watermill handler and registers it.
func RegisterJSONHandler[T any, O any](b *Bus, cfg handlerpkg.JSONHandlerRegistration[T, O]) error {
	if b == nil {
		return errspkg.ErrBusRequired
	}

	wrapped, err := handlerpkg.BuildJSONHandler(cfg.Handler, b.Logger)
	if err != nil {
		return err
	}

	return b.registerHandler(handlerRegistration{
		Name:         cfg.Name,
		ConsumeQueue: cfg.ConsumeQueue,
		PublishQueue: cfg.PublishQueue,
		Handler:      wrapped,
	})
}
