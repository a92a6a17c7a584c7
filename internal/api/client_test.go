package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		BaseURL: srv.URL + "/",
		Tokens:  TokenFunc(func() (string, error) { return token, nil }),
	})
}

func TestDoAttachesBearerToken(t *testing.T) {
	var gotAuth, gotAccept, gotID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}, "abc")

	if err := c.Do(context.Background(), Request{Path: "/todos"}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if gotID == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestDoSkipsTokenWhenNoAuthOrEmpty(t *testing.T) {
	var gotAuth []string
	h := func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
	}
	c := newTestClient(t, h, "abc")
	if err := c.Do(context.Background(), Request{Path: "/auth/login", NoAuth: true}, nil); err != nil {
		t.Fatal(err)
	}
	empty := newTestClient(t, h, "")
	if err := empty.Do(context.Background(), Request{Path: "/todos"}, nil); err != nil {
		t.Fatal(err)
	}
	for i, a := range gotAuth {
		if a != "" {
			t.Errorf("call %d sent Authorization %q", i, a)
		}
	}
}

func TestDoErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{"message field", "application/json", `{"message":"Título requerido"}`, 400, "Título requerido"},
		{"error field", "application/json", `{"error":"forbidden"}`, 403, "forbidden"},
		{"raw text", "text/plain", "upstream exploded", 502, "upstream exploded"},
		{"json without message", "application/json", `{"code":1}`, 400, `{"code":1}`},
		{"empty body", "", "", 500, "Error API (500)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, "")
			err := c.Do(context.Background(), Request{Path: "/x"}, nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Message != tt.want {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.want)
			}
		})
	}
}

func TestDoDecodesJSONAndText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			io.WriteString(w, `{"token":"t1"}`)
		case "/text":
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "pong")
		case "/empty":
			w.Header().Set("Content-Type", "application/json")
		}
	}, "")
	ctx := context.Background()

	var got struct{ Token string }
	if err := c.Do(ctx, Request{Path: "/json"}, &got); err != nil {
		t.Fatal(err)
	}
	if got.Token != "t1" {
		t.Errorf("token = %q", got.Token)
	}

	var text string
	if err := c.Do(ctx, Request{Path: "/text"}, &text); err != nil {
		t.Fatal(err)
	}
	if text != "pong" {
		t.Errorf("text = %q", text)
	}

	if err := c.Do(ctx, Request{Path: "/text"}, &got); !errors.Is(err, ErrNotJSON) {
		t.Errorf("expected ErrNotJSON, got %v", err)
	}

	untouched := []int{1}
	if err := c.Do(ctx, Request{Path: "/empty"}, &untouched); err != nil {
		t.Fatal(err)
	}
	if len(untouched) != 1 {
		t.Errorf("empty body modified out: %v", untouched)
	}
}

func TestDoEncodesJSONBody(t *testing.T) {
	var gotType, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}, "")
	body := map[string]any{"title": "Clean"}
	if err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/todos", Body: body}, nil); err != nil {
		t.Fatal(err)
	}
	if gotType != "application/json" {
		t.Errorf("content-type = %q", gotType)
	}
	if gotBody != `{"title":"Clean"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestDoNetworkFailureHasNoStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url})
	err := c.Do(context.Background(), Request{Path: "/todos"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if StatusOf(err) != 0 {
		t.Errorf("status = %d, want 0", StatusOf(err))
	}
}

func TestDoCancelledContextIsNotAnAPIError(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	}, "")
	t.Cleanup(func() { close(release) })

	// Cancelled before the call: the limiter refuses it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Do(ctx, Request{Path: "/todos"}, nil)
	var apiErr *Error
	if !errors.Is(err, context.Canceled) || errors.As(err, &apiErr) {
		t.Fatalf("before send: err = %v (%T)", err, err)
	}

	// Cancelled while the request is in flight.
	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err = c.Do(ctx, Request{Path: "/todos"}, nil)
	if !errors.Is(err, context.Canceled) || errors.As(err, &apiErr) {
		t.Fatalf("in flight: err = %v (%T)", err, err)
	}
}

func TestUploadSendsMultipart(t *testing.T) {
	var field, filename, partType, content string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		field, filename, partType, content = "image", hdr.Filename, hdr.Header.Get("Content-Type"), string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"url":"https://cdn/x.jpg"}`)
	}, "tok")

	var out struct{ URL string }
	err := c.Upload(context.Background(), "/images", "image", "photo.jpg", "image/jpeg", strings.NewReader("JPEGDATA"), &out)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if field != "image" || filename != "photo.jpg" || partType != "image/jpeg" || content != "JPEGDATA" {
		t.Errorf("got field=%q filename=%q type=%q content=%q", field, filename, partType, content)
	}
	if out.URL != "https://cdn/x.jpg" {
		t.Errorf("url = %q", out.URL)
	}
}
