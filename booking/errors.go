package booking

import (
	"errors"
	"strings"
)

// ErrStaleResponse is returned by Apply for a result that a newer request
// has superseded. It is never shown to the user.
var ErrStaleResponse = errors.New("stale response")

// ValidationError blocks a submission locally before any request is made.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing " + strings.Join(e.Missing, ", ")
	}
	if e.Reason != "" {
		return e.Reason
	}
	return "booking is not ready"
}

// ConflictError means the seat is already booked for an overlapping window.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return "seat is already booked for that time"
	}
	return e.Reason
}

// TransportError covers network and server failures unrelated to booking
// rules, including responses with an unexpected shape.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "request failed"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
