// SPDX-License-Identifier: MIT

package registry

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound    = errors.New("registry: channel not found")
	ErrConflict    = errors.New("registry: conflicting channel state")
	ErrUnavailable = errors.New("registry: host unreachable or transport failure")
	ErrUpstream    = errors.New("registry: internal error (5xx)")
	ErrBadResponse = errors.New("registry: invalid response format")
	ErrTimeout     = errors.New("registry: request timed out")
)

// Error wraps a sentinel with call context.
type Error struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("registry: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Sentinel }
