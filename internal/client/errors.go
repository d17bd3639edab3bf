package client

import (
	"errors"
	"fmt"
)

// FallbackMessage is surfaced when an error response carries no usable detail.
const FallbackMessage = "Failed to generate emails"

// RequestError is returned when the service answers with a non-2xx status.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("generation request failed with status %d: %s", e.StatusCode, e.Message)
}

// TransportError is returned when no usable response was received: the request
// could not be sent, timed out, or the body could not be decoded.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the text a session shows for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Cause != nil {
		return transportErr.Cause.Error()
	}
	return err.Error()
}
