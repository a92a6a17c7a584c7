package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotJSON is returned when a successful response is not JSON and the
// caller asked for a structured value.
var ErrNotJSON = errors.New("response is not json")

// Error is a failed call: a non-2xx status, or Status 0 when the request never
// got an answer (dns, refused connection, timeout).
type Error struct {
	Status  int
	Message string
	Body    string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, status int) bool {
	return err != nil && StatusOf(err) == status
}

// statusError builds the failure for a non-2xx response. The message comes from
// the body's "message" field, then its "error" field, then the raw text.
func statusError(status int, body string) *Error {
	msg := ""
	trimmed := strings.TrimSpace(body)
	if trimmed != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			msg = stringField(parsed, "message")
			if msg == "" {
				msg = stringField(parsed, "error")
			}
		}
		if msg == "" {
			msg = trimmed
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("Error API (%d)", status)
	}
	return &Error{Status: status, Message: msg, Body: body}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
