package remotehand

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotLoggedOn is returned when an operation needs an engine session and
// Logon has not succeeded yet.
var ErrNotLoggedOn = errors.New("remotehand: not logged on")

// ErrClosed is returned by Logon once the client has been closed.
var ErrClosed = errors.New("remotehand: client closed")

// LogonError reports a failed session negotiation.
type LogonError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *LogonError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remotehand logon failed: %v", e.Err)
	}
	return fmt.Sprintf("remotehand logon failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *LogonError) Unwrap() error { return e.Err }

// TransportError reports a failed or rejected HTTP exchange with the engine.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remotehand %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remotehand %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is returned by WaitAndGet when the engine stays busy past
// the deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("remotehand: no result after %s", e.Timeout)
}
