package errors

import sterrors "errors"

var (
	ErrBusRequired                 = sterrors.New("choreo: event bus is required")
	ErrConfigRequired              = sterrors.New("choreo: config is required")
	ErrLoggerRequired              = sterrors.New("choreo: logger is required")
	ErrHandlerRequired             = sterrors.New("choreo: handler function is required")
	ErrConsumeQueueRequired        = sterrors.New("choreo: consume queue is required")
	ErrHandlerNameRequired         = sterrors.New("choreo: handler name is required")
	ErrConsumeMessageTypeRequired  = sterrors.New("choreo: consume message type is required")
	ErrConsumeMessagePointerNeeded = sterrors.New("choreo: consume message type must be a pointer")
	ErrPublisherRequired           = sterrors.New("choreo: publisher is required")
	ErrRoutingKeyRequired          = sterrors.New("choreo: routing key is required")
	ErrEventPayloadRequired        = sterrors.New("choreo: event payload is required")
)
