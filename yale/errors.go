package yale

import (
	"errors"
	"fmt"
	"net/http"
)

// Validation errors returned before any request is sent.
var (
	ErrEmptyCredentials = errors.New("yale: username and password cannot be empty")
	ErrEmptyLockName    = errors.New("yale: lock name cannot be empty")
	ErrUnknownState     = errors.New("yale: alarm state must be armed full, armed partial or disarmed")
	ErrUnknownVolume    = errors.New("yale: unknown lock volume")
)

// AuthError reports rejected credentials or a token that was refused twice.
type AuthError struct {
	// Op names the step that failed, e.g. "login" or "GET /api/panel/mode/".
	Op string
	// Reason is the vendor or local explanation.
	Reason string
	// Err is the underlying failure, if any.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := "yale: authentication failed: " + e.Op
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying failure.
func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure: DNS, dial, TLS, timeout.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("yale: network error: %s: %v", e.Op, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the transport failure was a timeout.
func (e *NetworkError) Timeout() bool {
	var t interface{ Timeout() bool }

	return errors.As(e.Err, &t) && t.Timeout()
}

// ServerError reports a non-2xx response other than 401, a vendor result
// code other than success inside a 2xx body, or a body of unexpected shape.
type ServerError struct {
	Op string
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the vendor result code, empty when the body carried none.
	Code string
	// Message is the vendor message or a local validation message.
	Message string
	// Body is the raw response body, truncated.
	Body string
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("yale: server error: %s: status %d, code %s: %s", e.Op, e.StatusCode, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("yale: server error: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("yale: server error: %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
}

// NotFoundError reports a device absent from the server's current list.
type NotFoundError struct {
	// Kind is the device kind, e.g. "lock".
	Kind string
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("yale: %s %q not found", e.Kind, e.Name)
}

// IsAuth returns true if err is or wraps an *AuthError.
func IsAuth(err error) bool {
	var target *AuthError

	return errors.As(err, &target)
}

// IsNetwork returns true if err is or wraps a *NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError

	return errors.As(err, &target)
}

// IsServer returns true if err is or wraps a *ServerError.
func IsServer(err error) bool {
	var target *ServerError

	return errors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError

	return errors.As(err, &target)
}

// isUnauthorized reports whether err is a 401 response eligible for a token refresh.
func isUnauthorized(err error) bool {
	var target *ServerError

	return errors.As(err, &target) && target.StatusCode == http.StatusUnauthorized
}
