package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient marks failures that may succeed when retried.
	ErrTransient = errors.New("transient fetch failure")

	// ErrPermanent marks failures that will not succeed when retried.
	ErrPermanent = errors.New("permanent fetch failure")
)

// Error describes a failed fetch.
type Error struct {
	// URL is the requested URL.
	URL string
	// StatusCode is the last HTTP status, 0 if no response arrived.
	StatusCode int
	// Attempts is the number of requests made.
	Attempts int
	// Kind is ErrTransient, ErrPermanent, context.Canceled or
	// context.DeadlineExceeded.
	Kind error
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("fetch %s: %v", e.URL, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsTransient reports whether err is a transient fetch failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsPermanent reports whether err is a permanent fetch failure.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
