package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
)

var (
	ErrEmptyTitle = errors.New("El título de la tarea es obligatorio.")
	ErrMissingID  = errors.New("missing todo id")
)

// Todo is the façade over /todos.
type Todo struct {
	t Transport
}

func NewTodo(t Transport) *Todo { return &Todo{t: t} }

// List returns every todo of the current user in server order.
func (s *Todo) List(ctx context.Context) ([]model.Item, error) {
	var raw json.RawMessage
	if err := s.t.Do(ctx, api.Request{Path: "/todos"}, &raw); err != nil {
		return nil, err
	}
	return decodeList(raw), nil
}

// decodeList is the one place that knows the list endpoint has answered both
// with a bare array and with {"data": [...]}. Anything else is an empty list.
func decodeList(raw json.RawMessage) []model.Item {
	items := []model.Item{}
	if err := json.Unmarshal(unwrapData(raw), &items); err != nil || items == nil {
		return []model.Item{}
	}
	return items
}

// Create posts a new todo. Only fields present in in are sent.
func (s *Todo) Create(ctx context.Context, in model.CreateInput) (model.Item, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return model.Item{}, ErrEmptyTitle
	}
	return s.itemCall(ctx, api.Request{Method: http.MethodPost, Path: "/todos", Body: in})
}

// Patch applies a partial update and returns the server's version of the item.
func (s *Todo) Patch(ctx context.Context, id string, in model.UpdateInput) (model.Item, error) {
	if id == "" {
		return model.Item{}, ErrMissingID
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return model.Item{}, ErrEmptyTitle
	}
	return s.itemCall(ctx, api.Request{Method: http.MethodPatch, Path: itemPath(id), Body: in})
}

// Remove deletes a todo.
func (s *Todo) Remove(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return s.t.Do(ctx, api.Request{Method: http.MethodDelete, Path: itemPath(id)}, nil)
}

func (s *Todo) itemCall(ctx context.Context, req api.Request) (model.Item, error) {
	var raw json.RawMessage
	if err := s.t.Do(ctx, req, &raw); err != nil {
		return model.Item{}, err
	}
	if len(raw) == 0 {
		return model.Item{}, fmt.Errorf("%s %s: %w", req.Method, req.Path, ErrEmptyResponse)
	}
	var it model.Item
	if err := json.Unmarshal(unwrapData(raw), &it); err != nil {
		return model.Item{}, fmt.Errorf("decode item: %w", err)
	}
	if it.ID == "" {
		return model.Item{}, fmt.Errorf("%s %s: item without id: %w", req.Method, req.Path, ErrEmptyResponse)
	}
	return it, nil
}

func itemPath(id string) string { return "/todos/" + url.PathEscape(id) }
