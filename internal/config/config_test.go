package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvDebug, EnvConfig, EnvPhotoPolicy} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.PhotoPolicy != "optional" || cfg.Location != nil {
		t.Errorf("cfg = %+v", cfg)
	}
	if d, _ := cfg.TimeoutDuration(); d != DefaultTimeout {
		t.Errorf("timeout = %v", d)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
api-url = "https://api.example.com/"
timeout = "3s"
rate-limit = 5
photo-policy = "required"

[location]
latitude = -33.45
longitude = -70.66
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "https://api.example.com" {
		t.Errorf("api-url = %q", cfg.APIURL)
	}
	if d, _ := cfg.TimeoutDuration(); d != 3*time.Second {
		t.Errorf("timeout = %v", d)
	}
	if cfg.RateLimit != 5 || cfg.PhotoPolicy != "required" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Location == nil || cfg.Location.Latitude != -33.45 {
		t.Errorf("location = %+v", cfg.Location)
	}

	t.Setenv(EnvAPIURL, "http://localhost:9999")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvPhotoPolicy, "off")
	cfg, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIURL != "http://localhost:9999" || !cfg.Debug || cfg.PhotoPolicy != "off" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadTimeout(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte(`timeout = "soon"`), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("expected error")
	}
}

func TestLoadUsesTadaConfigEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "alt.toml")
	os.WriteFile(path, []byte(`theme = "mono"`), 0o644)
	t.Setenv(EnvConfig, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "mono" {
		t.Errorf("theme = %q", cfg.Theme)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	os.WriteFile(env, []byte("TADA_TEST_A=from-file\nTADA_TEST_B=from-file\n"), 0o644)
	t.Setenv("TADA_TEST_A", "already")
	t.Setenv("TADA_TEST_B", "")
	os.Unsetenv("TADA_TEST_B")

	if err := LoadDotEnv(env, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("TADA_TEST_A"); got != "already" {
		t.Errorf("A = %q", got)
	}
	if got := os.Getenv("TADA_TEST_B"); got != "from-file" {
		t.Errorf("B = %q", got)
	}
}
