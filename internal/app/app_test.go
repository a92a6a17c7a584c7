package app

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/apitest"
	"github.com/Makepad-fr/tada/internal/capture"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/session"
)

func newApp(t *testing.T, mutate func(*config.Config)) (*App, *apitest.Server) {
	t.Helper()
	t.Setenv(session.EnvToken, "")
	srv := apitest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("ana@example.com", "s3cret")

	cfg := &config.Config{APIURL: srv.URL, Timeout: "5s", PhotoPolicy: "optional"}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(Options{Config: cfg, SessionDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, srv
}

func login(t *testing.T, a *App) {
	t.Helper()
	if _, err := a.Login(context.Background(), "ana@example.com", "s3cret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func writeJPEG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "task.jpg")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoginStoresSession(t *testing.T) {
	a, _ := newApp(t, nil)
	if _, err := a.RequireAuth(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	login(t, a)

	sess, err := a.RequireAuth()
	if err != nil {
		t.Fatal(err)
	}
	if sess.Email != "ana@example.com" || sess.Token == "" {
		t.Errorf("session = %+v", sess)
	}
	if err := a.Todos.FetchAll(context.Background()); err != nil {
		t.Errorf("authenticated fetch failed: %v", err)
	}
}

func TestLoginFailureKeepsLoggedOut(t *testing.T) {
	a, _ := newApp(t, nil)
	_, err := a.Login(context.Background(), "ana@example.com", "wrong")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if sess, _ := a.Session(); sess != nil {
		t.Errorf("session stored after failed login: %+v", sess)
	}
}

func TestLogout(t *testing.T) {
	a, _ := newApp(t, nil)
	login(t, a)
	fromEnv, err := a.Logout()
	if err != nil || fromEnv {
		t.Fatalf("Logout: fromEnv=%v err=%v", fromEnv, err)
	}
	if sess, _ := a.Session(); sess != nil {
		t.Errorf("still logged in: %+v", sess)
	}

	t.Setenv(session.EnvToken, "env-token")
	fromEnv, err = a.Logout()
	if err != nil || !fromEnv {
		t.Errorf("env logout: fromEnv=%v err=%v", fromEnv, err)
	}
}

func TestCreateTaskWithPhotoAndConfiguredLocation(t *testing.T) {
	a, srv := newApp(t, func(c *config.Config) {
		c.Location = &config.Location{Latitude: -33.45, Longitude: -70.66}
	})
	login(t, a)

	it, err := a.CreateTask(context.Background(), NewTask{Title: "  Water plants ", PhotoPath: writeJPEG(t)})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if it.Title != "Water plants" {
		t.Errorf("title = %q", it.Title)
	}
	if !strings.Contains(it.Photo(), "/uploads/") || !strings.HasSuffix(it.Photo(), "task.jpg") {
		t.Errorf("photo = %q", it.Photo())
	}
	if it.Location == nil || it.Location.Latitude != -33.45 {
		t.Errorf("location = %+v", it.Location)
	}
	if got := a.Todos.Items(); len(got) != 1 || got[0].ID != it.ID {
		t.Errorf("store = %+v", got)
	}
	reqs := srv.Requests()
	if reqs[len(reqs)-2] != "POST /images" || reqs[len(reqs)-1] != "POST /todos" {
		t.Errorf("requests = %v", reqs)
	}
}

func TestCreateTaskExplicitLocationWins(t *testing.T) {
	a, _ := newApp(t, func(c *config.Config) {
		c.Location = &config.Location{Latitude: 1, Longitude: 1}
	})
	login(t, a)
	it, err := a.CreateTask(context.Background(), NewTask{
		Title:    "Here",
		Location: &model.Location{Latitude: 5, Longitude: 6},
	})
	if err != nil {
		t.Fatal(err)
	}
	if it.Location == nil || it.Location.Latitude != 5 || it.Location.Longitude != 6 {
		t.Errorf("location = %+v", it.Location)
	}
}

func TestCreateTaskValidationSkipsNetwork(t *testing.T) {
	a, srv := newApp(t, func(c *config.Config) { c.PhotoPolicy = "required" })
	login(t, a)
	before := len(srv.Requests())
	ctx := context.Background()

	if _, err := a.CreateTask(ctx, NewTask{Title: " "}); !errors.Is(err, service.ErrEmptyTitle) {
		t.Errorf("empty title: %v", err)
	}
	if _, err := a.CreateTask(ctx, NewTask{Title: "No photo"}); !errors.Is(err, capture.ErrPhotoRequired) {
		t.Errorf("missing photo: %v", err)
	}
	if _, err := a.CreateTask(ctx, NewTask{Title: "Bad photo", PhotoPath: "/does/not/exist.jpg"}); !errors.Is(err, capture.ErrNoPhoto) {
		t.Errorf("bad photo path: %v", err)
	}
	if n := len(srv.Requests()) - before; n != 0 {
		t.Errorf("made %d requests", n)
	}
}

func TestNewRejectsBadPolicy(t *testing.T) {
	cfg := &config.Config{APIURL: "http://127.0.0.1:1", PhotoPolicy: "maybe"}
	if _, err := New(Options{Config: cfg, SessionDir: t.TempDir()}); !errors.Is(err, capture.ErrBadPolicy) {
		t.Errorf("err = %v", err)
	}
}

func TestSyncKeepsOfflineCopy(t *testing.T) {
	a, srv := newApp(t, nil)
	login(t, a)
	srv.Seed("ana@example.com", apitest.Todo{ID: "1", Title: "Buy milk"})

	if err := a.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := a.Offline()
	if err != nil || snap == nil {
		t.Fatalf("Offline() = %v, %v", snap, err)
	}
	if snap.Email != "ana@example.com" || len(snap.Items) != 1 || snap.Items[0].Title != "Buy milk" {
		t.Errorf("snapshot = %+v", snap)
	}

	if _, err := a.Logout(); err != nil {
		t.Fatal(err)
	}
	if snap, _ := a.Offline(); snap != nil {
		t.Error("logout kept the offline list")
	}
}

func TestOfflineIgnoresOtherAccounts(t *testing.T) {
	a, _ := newApp(t, nil)
	login(t, a)
	items := []model.Item{{ID: "b1", Title: "Bob private task"}}
	if err := a.Cache.Save("bob@example.com", items, time.Now()); err != nil {
		t.Fatal(err)
	}

	snap, err := a.Offline()
	if err != nil || snap != nil {
		t.Fatalf("Offline() = %+v, %v; want nothing for another account", snap, err)
	}

	if err := a.Cache.Save("ana@example.com", items, time.Now()); err != nil {
		t.Fatal(err)
	}
	if snap, err := a.Offline(); err != nil || snap == nil {
		t.Fatalf("Offline() = %v, %v; want ana's list", snap, err)
	}
}

func TestLoginAsAnotherAccountDropsOfflineList(t *testing.T) {
	a, srv := newApp(t, nil)
	srv.AddUser("bob@example.com", "hunter2")
	login(t, a)
	srv.Seed("ana@example.com", apitest.Todo{ID: "1", Title: "Ana private task"})
	if err := a.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Same account again keeps it.
	login(t, a)
	if snap, _ := a.Cache.Load(); snap == nil {
		t.Fatal("re-login as the same account dropped the list")
	}

	if _, err := a.Login(context.Background(), "bob@example.com", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if snap, _ := a.Cache.Load(); snap != nil {
		t.Fatalf("list of ana survived bob's login: %+v", snap)
	}
}

func TestSyncUnreachable(t *testing.T) {
	a, srv := newApp(t, nil)
	login(t, a)
	srv.Close()

	err := a.Sync(context.Background())
	if !Unreachable(err) {
		t.Fatalf("Unreachable(%v) = false", err)
	}
	if Unreachable(&api.Error{Status: 500}) {
		t.Error("a server answer is not unreachable")
	}
}
