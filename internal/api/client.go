// Package api is the HTTP transport to the remote todo service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// TokenSource yields the bearer token for authenticated calls. It is asked on
// every call, so a logout or login between two calls is picked up.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

// Options configure a Client. Only BaseURL is required.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Timeout    time.Duration
	// RateLimit caps requests per second; zero or negative means unlimited.
	RateLimit float64
	Logger    *log.Logger
}

// Client performs requests against the remote API.
type Client struct {
	base    string
	hc      *http.Client
	tokens  TokenSource
	timeout time.Duration
	limiter *rate.Limiter
	log     *log.Logger
}

func New(opt Options) *Client {
	hc := opt.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if opt.RateLimit > 0 {
		burst := int(opt.RateLimit)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opt.RateLimit), burst)
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{
		base:    strings.TrimRight(opt.BaseURL, "/"),
		hc:      hc,
		tokens:  opt.Tokens,
		timeout: opt.Timeout,
		limiter: lim,
		log:     logger,
	}
}

// BaseURL returns the service root every path is resolved against.
func (c *Client) BaseURL() string { return c.base }

// Request describes one call. Body is sent as-is when it is an io.Reader and
// JSON-encoded otherwise. Calls are authenticated unless NoAuth is set.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   any
	NoAuth bool
}

// Do performs req and decodes a successful response into out.
//
// An empty 2xx body leaves out untouched. A JSON body is decoded into out; any
// other body is stored in out when it is a *string and rejected with
// ErrNotJSON otherwise. Non-2xx responses and transport failures come back
// as *Error. When the caller's context ends first its error is returned as is.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	parent := ctx
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := parent.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limit: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", method, req.Path, err)
	}

	hr, err := http.NewRequestWithContext(ctx, method, c.base+req.Path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, req.Path, err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		hr.Header.Set("Content-Type", contentType)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			if v != "" {
				hr.Header.Add(k, v)
			}
		}
	}

	token := ""
	if !req.NoAuth && c.tokens != nil {
		token, err = c.tokens.Token()
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if token != "" {
			hr.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debug("request", "method", method, "url", hr.URL.String(),
		"hasToken", token != "", "tokenLen", len(token), "id", hr.Header.Get("X-Request-ID"))

	resp, err := c.hc.Do(hr)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", req.Path, "err", err)
		if ctxErr := parent.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, req.Path, ctxErr)
		}
		return &Error{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: resp.StatusCode, Message: err.Error(), Err: err}
	}
	text := string(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug("error response", "status", resp.StatusCode, "path", req.Path, "body", text)
		return statusError(resp.StatusCode, text)
	}
	c.log.Debug("response", "status", resp.StatusCode, "path", req.Path, "bytes", len(raw))

	if len(raw) == 0 || out == nil {
		return nil
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, req.Path, err)
		}
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = text
		return nil
	}
	return fmt.Errorf("%s %s: %w (content-type %q)", method, req.Path, ErrNotJSON, resp.Header.Get("Content-Type"))
}

// Upload posts a single file as multipart/form-data under field.
func (c *Client) Upload(ctx context.Context, path, field, filename, contentType string, r io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("multipart copy: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("multipart close: %w", err)
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		Header: http.Header{"Content-Type": []string{mw.FormDataContentType()}},
		Body:   &buf,
	}, out)
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
