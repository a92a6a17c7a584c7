// Package app wires configuration, the session, the transport, the services
// and the synchronized store together for the presentation layers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/capture"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/store/todostore"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session expired")
)

// Options configure New. Zero values fall back to ~/.tada and a discard logger.
type Options struct {
	Config     *config.Config
	SessionDir string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// App is one client instance bound to one service and one session store.
type App struct {
	Config   *config.Config
	Sessions *session.Store
	Client   *api.Client
	Auth     *service.Auth
	Images   *service.Image
	Todos    *todostore.Store
	Cache    *jsonstore.Store
	Policy   capture.Policy
	Locator  capture.Locator
	Log      *log.Logger

	now func() time.Time
}

func New(opt Options) (*App, error) {
	cfg := opt.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}
	logger := opt.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	dir := opt.SessionDir
	if dir == "" {
		var err error
		if dir, err = session.DefaultDir(); err != nil {
			return nil, err
		}
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	policy, err := capture.ParsePolicy(cfg.PhotoPolicy)
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(dir)
	client := api.New(api.Options{
		BaseURL:    cfg.APIURL,
		HTTPClient: opt.HTTPClient,
		Tokens:     sessions,
		Timeout:    timeout,
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	})

	var locator capture.Locator = capture.NoLocator{}
	if cfg.Location != nil {
		loc, err := capture.NewLocation(cfg.Location.Latitude, cfg.Location.Longitude)
		if err != nil {
			return nil, fmt.Errorf("config location: %w", err)
		}
		locator = capture.StaticLocator{Location: loc}
	}

	return &App{
		Config:   cfg,
		Sessions: sessions,
		Client:   client,
		Auth:     service.NewAuth(client),
		Images:   service.NewImage(client),
		Todos:    todostore.New(todostore.FromService(service.NewTodo(client))),
		Cache:    jsonstore.New(dir),
		Policy:   policy,
		Locator:  locator,
		Log:      logger,
		now:      time.Now,
	}, nil
}

// Session returns the current session or nil.
func (a *App) Session() (*session.Session, error) {
	return a.Sessions.Load()
}

// RequireAuth returns the session or explains why there is none.
func (a *App) RequireAuth() (*session.Session, error) {
	sess, err := a.Sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotLoggedIn
	}
	if sess.Expired(a.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Login authenticates and replaces the stored session.
func (a *App) Login(ctx context.Context, email, password string) (*session.Session, error) {
	token, err := a.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if prev, _ := a.Sessions.Load(); prev == nil || !strings.EqualFold(prev.Email, strings.TrimSpace(email)) {
		if err := a.Cache.Clear(); err != nil {
			return nil, err
		}
	}
	sess, err := a.Sessions.Save(token, email)
	if err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	a.Log.Info("logged in", "email", sess.Email)
	return sess, nil
}

func (a *App) Register(ctx context.Context, email, password string) error {
	return a.Auth.Register(ctx, email, password)
}

// Logout clears the stored session and the offline list. It reports fromEnv
// when the token comes from TADA_TOKEN, which it cannot remove.
func (a *App) Logout() (fromEnv bool, err error) {
	if err := a.Cache.Clear(); err != nil {
		return false, err
	}
	sess, _ := a.Sessions.Load()
	if sess != nil && sess.Source == session.SourceEnv {
		return true, nil
	}
	if err := a.Sessions.Clear(); err != nil {
		return false, err
	}
	return false, nil
}

// Sync checks the session, fetches the list and keeps a copy for offline use.
func (a *App) Sync(ctx context.Context) error {
	sess, err := a.RequireAuth()
	if err != nil {
		return err
	}
	if err := a.Todos.FetchAll(ctx); err != nil {
		return err
	}
	if err := a.Cache.Save(sess.Email, a.Todos.Items(), a.now()); err != nil {
		a.Log.Warn("could not save offline list", "err", err)
	}
	return nil
}

// Offline returns the list saved by the last Sync, or nil. Only a list saved
// for the account of the current session is returned.
func (a *App) Offline() (*jsonstore.Snapshot, error) {
	sess, err := a.Sessions.Load()
	if err != nil || sess == nil {
		return nil, err
	}
	snap, err := a.Cache.Load()
	if err != nil || snap == nil {
		return nil, err
	}
	if !strings.EqualFold(snap.Email, sess.Email) {
		return nil, nil
	}
	return snap, nil
}

// Unreachable reports whether err means the service could not be contacted
// at all, as opposed to answering with an error.
func Unreachable(err error) bool {
	var apiErr *api.Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}
