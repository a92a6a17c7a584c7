package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv(EnvToken, "")
	t.Setenv(EnvEmail, "")
	return NewStore(filepath.Join(t.TempDir(), ".tada"))
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestLoadWithoutFileIsLoggedOut(t *testing.T) {
	s := newStore(t)
	sess, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
	tok, err := s.Token()
	if err != nil || tok != "" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
}

func TestSaveLoadClear(t *testing.T) {
	s := newStore(t)
	if _, err := s.Save("Bearer abc123", "ana@example.com"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(s.Dir(), credFileName))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	sess, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.Token != "abc123" || sess.Email != "ana@example.com" || sess.Source != SourceFile {
		t.Errorf("unexpected session %+v", sess)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if sess, _ := s.Load(); sess != nil {
		t.Errorf("session survived Clear: %+v", sess)
	}
}

func TestSaveRejectsEmptyToken(t *testing.T) {
	s := newStore(t)
	if _, err := s.Save("  bearer  ", "x@y.z"); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	s := newStore(t)
	if _, err := s.Save("from-file", "a@b.c"); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvToken, "Bearer from-env")
	t.Setenv(EnvEmail, "env@b.c")

	sess, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if sess.Token != "from-env" || sess.Source != SourceEnv || sess.Email != "env@b.c" {
		t.Errorf("unexpected session %+v", sess)
	}
}

func TestSaveReadsJWTExpiry(t *testing.T) {
	s := newStore(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"exp": exp.Unix(), "email": "ana@example.com"})

	sess, err := s.Save(tok, "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ExpiresAt == nil || !sess.ExpiresAt.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}
	if sess.Expired(time.Now()) {
		t.Error("fresh token reported expired")
	}
	if !sess.Expired(exp.Add(time.Minute)) {
		t.Error("token not expired after exp")
	}
}

func TestClaims(t *testing.T) {
	tok := signed(t, jwt.MapClaims{"sub": "42"})
	claims, err := Claims(tok)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if claims["sub"] != "42" {
		t.Errorf("sub = %v", claims["sub"])
	}
	if _, err := Claims("opaque-token"); !errors.Is(err, ErrOpaqueToken) {
		t.Errorf("expected ErrOpaqueToken, got %v", err)
	}
}
