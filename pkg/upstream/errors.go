// Package upstream holds the HTTP plumbing shared by every third-party API
// client: error taxonomy, bounded body reads, circuit breaking and metrics.
package upstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error is a failed call to a third-party API: a transport failure, a
// non-2xx status or a body that couldn't be decoded. It is recoverable; batch
// callers back off and continue.
type Error struct {
	Service    string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Service, e.Err)
	}
	return e.Service + ": request failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same request later could succeed.
func (e *Error) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AuthError means credentials could not be obtained or were rejected. It is
// not retried: a batch aborts before doing any work.
type AuthError struct {
	Service string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Service, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func IsError(err error) bool {
	var ue *Error
	return errors.As(err, &ue)
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// StatusCode returns the HTTP status of an upstream failure, or 0.
func StatusCode(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.StatusCode
	}
	return 0
}
