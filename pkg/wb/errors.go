package wb

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies an APIError. The set is closed.
type ErrorKind int

// Error kinds.
const (
	KindGeneric ErrorKind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindRateLimited
	KindServer
	KindTimeout
	KindConnection
)

var kindNames = map[ErrorKind]string{
	KindGeneric:     "generic",
	KindValidation:  "validation",
	KindAuth:        "auth",
	KindForbidden:   "forbidden",
	KindNotFound:    "not_found",
	KindRateLimited: "rate_limited",
	KindServer:      "server",
	KindTimeout:     "timeout",
	KindConnection:  "connection",
}

// String returns the snake_case name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinel errors matched by errors.Is against an *APIError of the same kind.
var (
	ErrGeneric     = errors.New("wb api error")
	ErrValidation  = errors.New("validation error")
	ErrAuth        = errors.New("authentication failed")
	ErrForbidden   = errors.New("access forbidden")
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrServer      = errors.New("server error")
	ErrTimeout     = errors.New("request timeout")
	ErrConnection  = errors.New("connection error")

	ErrTaskTimeout = errors.New("task wait timed out")
	ErrTaskFailed  = errors.New("task failed")
)

var kindSentinels = map[ErrorKind]error{
	KindGeneric:     ErrGeneric,
	KindValidation:  ErrValidation,
	KindAuth:        ErrAuth,
	KindForbidden:   ErrForbidden,
	KindNotFound:    ErrNotFound,
	KindRateLimited: ErrRateLimited,
	KindServer:      ErrServer,
	KindTimeout:     ErrTimeout,
	KindConnection:  ErrConnection,
}

// DefaultRetryAfter is used when a 429 response carries no usable retry header.
const DefaultRetryAfter = time.Second

// APIError is returned by the executor for every failed request.
// StatusCode is zero for transport failures, which never carry a Body.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	// Body is the decoded error body, or {"detail": text} when the body
	// was not JSON.
	Body map[string]any
	// RetryAfter is set for KindRateLimited only.
	RetryAfter time.Duration
	// Err is the underlying transport error, if any.
	Err error
}

// Error implements error.
func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("wb %s error: %s: %v", e.Kind, e.Message, e.Err)
	case e.Kind == KindRateLimited:
		return fmt.Sprintf("wb api error (status %d): %s (retry after %s)", e.StatusCode, e.Message, e.RetryAfter)
	case e.StatusCode == 0:
		return fmt.Sprintf("wb %s error: %s", e.Kind, e.Message)
	default:
		return fmt.Sprintf("wb api error (status %d): %s", e.StatusCode, e.Message)
	}
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *APIError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether the caller may reasonably retry the request.
// The executor itself never retries.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServer, KindTimeout, KindConnection:
		return true
	default:
		return false
	}
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusBadRequest:
		return KindValidation
	case code == http.StatusUnauthorized:
		return KindAuth
	case code == http.StatusForbidden:
		return KindForbidden
	case code == http.StatusNotFound:
		return KindNotFound
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindGeneric
	}
}

// TaskTimeoutError reports that a poll loop gave up before the task reached
// a terminal state.
type TaskTimeoutError struct {
	TaskID  string
	Elapsed time.Duration
	// Last is the most recent snapshot read before giving up.
	Last *TaskSnapshot
}

// Error implements error.
func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %s did not complete within %.1fs", e.TaskID, e.Elapsed.Seconds())
}

// Is matches ErrTaskTimeout.
func (e *TaskTimeoutError) Is(target error) bool {
	return target == ErrTaskTimeout
}

// TaskFailedError reports that the remote task itself reached a failed
// terminal status.
type TaskFailedError struct {
	TaskID string
	Status string
	Errors []json.RawMessage
}

// Error implements error.
func (e *TaskFailedError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("task %s failed with status %s", e.TaskID, e.Status)
	}
	return fmt.Sprintf("task %s failed with status %s (%d errors)", e.TaskID, e.Status, len(e.Errors))
}

// Is matches ErrTaskFailed.
func (e *TaskFailedError) Is(target error) bool {
	return target == ErrTaskFailed
}
