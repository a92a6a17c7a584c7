// Package apitest is an in-memory stand-in for the remote todo service, used
// by tests across the module.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Todo is the server-side record. Coordinates are stored flat, the way the
// current service revision keeps them.
type Todo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PhotoURI  *string  `json:"photoUri,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

type failure struct {
	method string
	prefix string
	status int
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	// Envelope wraps list responses as {"success":true,"data":[...]}.
	Envelope bool

	mu       sync.Mutex
	users    map[string]string // email -> password
	tokens   map[string]string // token -> email
	todos    map[string][]Todo // email -> todos, newest first
	failures []failure
	requests []string
}

// New starts a fake API. Callers must Close it.
func New() *Server {
	s := &Server{
		users:  map[string]string{},
		tokens: map[string]string{},
		todos:  map[string][]Todo{},
	}
	r := mux.NewRouter()
	r.Use(s.record, s.injectFailures)
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireToken)
	authed.HandleFunc("/todos", s.list).Methods(http.MethodGet)
	authed.HandleFunc("/todos", s.create).Methods(http.MethodPost)
	authed.HandleFunc("/todos/{id}", s.patch).Methods(http.MethodPatch)
	authed.HandleFunc("/todos/{id}", s.remove).Methods(http.MethodDelete)
	authed.HandleFunc("/images", s.upload).Methods(http.MethodPost)

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser registers an account directly.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
}

// IssueToken logs email in and returns its bearer token.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = email
	return tok
}

// Seed prepends todos for email, oldest first in the argument list.
func (s *Server) Seed(email string, todos ...Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range todos {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.todos[email] = append([]Todo{t}, s.todos[email]...)
	}
}

// Todos returns a copy of email's todos.
func (s *Server) Todos(email string) []Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Todo(nil), s.todos[email]...)
}

// FailNext makes the next request whose method matches and whose path starts
// with prefix answer status. Failures queue up in call order.
func (s *Server) FailNext(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status})
}

// Requests lists "METHOD /path" for every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		for i, f := range s.failures {
			if f.method == r.Method && strings.HasPrefix(r.URL.Path, f.prefix) {
				s.failures = append(s.failures[:i], s.failures[i+1:]...)
				s.mu.Unlock()
				writeJSON(w, f.status, map[string]any{"message": http.StatusText(f.status)})
				return
			}
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		r.Header.Set("X-Test-Email", email)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	s.mu.Lock()
	pw, ok := s.users[in.Email]
	s.mu.Unlock()
	if !ok || pw != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid credentials"})
		return
	}
	tok := s.IssueToken(in.Email)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"token": tok}})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "email and password required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]any{"message": "email already registered"})
		return
	}
	s.users[in.Email] = in.Password
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-Test-Email")
	todos := s.Todos(email)
	if todos == nil {
		todos = []Todo{}
	}
	if s.Envelope {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": todos})
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in Todo
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "title required"})
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	t := Todo{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Completed: in.Completed,
		PhotoURI:  in.PhotoURI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Latitude != nil && in.Longitude != nil {
		t.Latitude, t.Longitude = in.Latitude, in.Longitude
	}
	email := r.Header.Get("X-Test-Email")
	s.mu.Lock()
	s.todos[email] = append([]Todo{t}, s.todos[email]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad json"})
		return
	}
	email := r.Header.Get("X-Test-Email")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos[email] {
		if t.ID != id {
			continue
		}
		if v, ok := in["title"]; ok {
			json.Unmarshal(v, &t.Title)
		}
		if v, ok := in["completed"]; ok {
			json.Unmarshal(v, &t.Completed)
		}
		if v, ok := in["latitude"]; ok {
			json.Unmarshal(v, &t.Latitude)
		}
		if v, ok := in["longitude"]; ok {
			json.Unmarshal(v, &t.Longitude)
		}
		if v, ok := in["photoUri"]; ok {
			t.PhotoURI = nil
			json.Unmarshal(v, &t.PhotoURI)
		}
		t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		s.todos[email][i] = t
		writeJSON(w, http.StatusOK, t)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "todo not found"})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	email := r.Header.Get("X-Test-Email")
	s.mu.Lock()
	defer s.mu.Unlock()
	todos := s.todos[email]
	for i, t := range todos {
		if t.ID == id {
			s.todos[email] = append(todos[:i:i], todos[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "todo not found"})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	f, hdr, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "image required"})
		return
	}
	defer f.Close()
	n, _ := io.Copy(io.Discard, f)
	key := uuid.NewString() + "-" + hdr.Filename
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"url":         s.URL + "/uploads/" + key,
			"key":         key,
			"size":        n,
			"contentType": hdr.Header.Get("Content-Type"),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
