// Package service maps auth, todo and image operations onto API calls.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/Makepad-fr/tada/internal/api"
)

// Transport is the subset of *api.Client the services need.
type Transport interface {
	Do(ctx context.Context, req api.Request, out any) error
	Upload(ctx context.Context, path, field, filename, contentType string, r io.Reader, out any) error
}

// ErrEmptyResponse is returned when the service answers 2xx with nothing.
var ErrEmptyResponse = errors.New("empty response from server")

// unwrapData returns the "data" member of an envelope such as
// {"success":true,"data":{...}}, or raw itself when there is no envelope.
func unwrapData(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return raw
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || string(data) == "null" {
		return raw
	}
	return data
}

// userError shows a user-facing message while keeping the transport failure
// reachable through errors.Is/As.
type userError struct {
	msg   error
	cause error
}

func (e *userError) Error() string   { return e.msg.Error() }
func (e *userError) Unwrap() []error { return []error{e.msg, e.cause} }

func friendly(msg, cause error) error {
	return &userError{msg: msg, cause: cause}
}
