package errors

// UnprocessableEventError marks a payload that can never be handled
// successfully: undecodable JSON, an unknown schema, or a payload that fails
// domain validation. The retry middleware skips these and the poison
// middleware routes them out of the queue instead of requeueing forever.
type UnprocessableEventError struct {
	Payload string
	Err     error
}

// NewUnprocessableEventError wraps the raw payload and the triggering error.
func NewUnprocessableEventError(payload []byte, err error) *UnprocessableEventError {
	return &UnprocessableEventError{
		Payload: string(payload),
		Err:     err,
	}
}

func (e *UnprocessableEventError) Error() string {
	return "unprocessable event: " + e.Payload + " error: " + e.Err.Error()
}

func (e *UnprocessableEventError) Unwrap() error {
	return e.Err
}
