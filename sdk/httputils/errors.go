package httputils

import (
	"errors"
	"fmt"
	"time"
)

// TransportError is returned when no HTTP response was received: connection
// refused, DNS failure, request timeout or a broken body stream.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http error: %s %s: %s", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is returned when the service answered with a non-success status.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP Status %d from %s %s", e.StatusCode, e.Method, e.URL)
	}
	return fmt.Sprintf("HTTP Status %d from %s %s: %s", e.StatusCode, e.Method, e.URL, e.Body)
}

// ProtocolError is returned when a well-formed response lacks an expected
// field or breaks a documented invariant.
type ProtocolError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error in %s: %s: %s", e.Operation, e.Reason, e.Err)
	}
	return fmt.Sprintf("protocol error in %s: %s", e.Operation, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// TaskFailedError is the terminal FAILED outcome of a task. Message is the
// server-supplied text, unmodified.
type TaskFailedError struct {
	TaskID  string
	Message string
}

func (e *TaskFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Sprintf("task %s failed: %s", e.TaskID, msg)
}

// TimeoutError is returned when the wait deadline expired before the task
// reached a terminal state.
type TimeoutError struct {
	TaskID     string
	Waited     time.Duration
	LastStatus string
	Err        error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for task %s (last status %s)", e.Waited.Round(time.Millisecond), e.TaskID, e.LastStatus)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IsRetryable reports whether err may be retried on an idempotent read. Only
// transport failures qualify.
func IsRetryable(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// StatusCode returns the HTTP status carried by a ServerError in err's chain,
// or zero.
func StatusCode(err error) int {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.StatusCode
	}
	return 0
}
