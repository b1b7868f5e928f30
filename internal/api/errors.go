package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Auth sentinel errors surfaced by the refresh-and-retry cycle.
var (
	// ErrNoRefreshToken is returned when a 401 is received but no refresh
	// token is stored, so no refresh attempt is possible.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrSessionExpired is returned when the refresh token itself was
	// rejected. The session has been cleared; the user must log in again.
	ErrSessionExpired = errors.New("session expired")
)

// IsAuthError reports whether err (or any error in its chain) indicates an
// invalidated session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoRefreshToken) || errors.Is(err, ErrSessionExpired)
}

// ValidationError is a local, pre-submission field check failure. No
// network call is made when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RequestError wraps a transport-level failure: the request never reached
// the server (DNS, refused connection, timeout).
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("cannot reach server (%s): %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the API, surfaced unmodified.
// Fields carries the server's per-field error messages keyed by input
// field name, when the payload provides them.
type HTTPError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for field, msg := range e.Fields {
			parts = append(parts, field+": "+msg)
		}
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api error (%d)", e.StatusCode)
}

// FieldError returns the server-side message for a named input field,
// or "" when the response carried none.
func (e *HTTPError) FieldError(field string) string {
	return e.Fields[field]
}

// decodeError builds an HTTPError from a non-2xx response body. The API
// answers either with a general message ("detail", "error" or "message")
// or with a per-field map whose values are strings or lists of strings.
func decodeError(status int, body []byte) *HTTPError {
	httpErr := &HTTPError{StatusCode: status}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		httpErr.Message = strings.TrimSpace(string(body))
		return httpErr
	}

	for key, raw := range payload {
		msg := flattenMessage(raw)
		if msg == "" {
			continue
		}
		switch key {
		case "detail", "error", "message", "non_field_errors":
			if httpErr.Message == "" {
				httpErr.Message = msg
			}
		default:
			if httpErr.Fields == nil {
				httpErr.Fields = make(map[string]string)
			}
			httpErr.Fields[key] = msg
		}
	}

	return httpErr
}

// flattenMessage renders a string or list-of-strings JSON value as one line.
func flattenMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, " ")
	}

	return ""
}
