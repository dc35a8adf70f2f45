package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// clearEnv unsets every BRIEFME_* variable for the duration of the test.
// An empty but set variable is not the same as an unset one for envconfig.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DB_PATH", "JWT_SECRET", "PUBLIC_ORIGIN", "LOG_LEVEL", "SESSION_TTL"} {
		key := Prefix + "_" + k
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, old) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 || cfg.DBPath != "data/briefme.db" {
		t.Errorf("cfg = %+v, want port 8080 and default db path", cfg)
	}
	if cfg.PublicOrigin != "http://localhost:8080" {
		t.Errorf("PublicOrigin = %q", cfg.PublicOrigin)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %s, want 24h", cfg.SessionTTL)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %s, want INFO", cfg.Level())
	}
	if !cfg.GeneratedSecret || len(cfg.JWTSecret) != 64 {
		t.Errorf("expected a generated 32-byte hex secret, got %q", cfg.JWTSecret)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BRIEFME_PORT", "9000")
	t.Setenv("BRIEFME_JWT_SECRET", "a-very-long-test-secret")
	t.Setenv("BRIEFME_PUBLIC_ORIGIN", "https://briefs.example.com/")
	t.Setenv("BRIEFME_LOG_LEVEL", "DEBUG")
	t.Setenv("BRIEFME_SESSION_TTL", "2h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.GeneratedSecret || cfg.JWTSecret != "a-very-long-test-secret" {
		t.Errorf("JWTSecret = %q, generated = %v", cfg.JWTSecret, cfg.GeneratedSecret)
	}
	if cfg.PublicOrigin != "https://briefs.example.com" {
		t.Errorf("PublicOrigin = %q, want trailing slash trimmed", cfg.PublicOrigin)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %s, want DEBUG", cfg.Level())
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %s, want 2h", cfg.SessionTTL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct{ key, value string }{
		"non-numeric port": {"BRIEFME_PORT", "http"},
		"port out of range": {"BRIEFME_PORT", "70000"},
		"bad level":         {"BRIEFME_LOG_LEVEL", "loud"},
		"bad ttl":           {"BRIEFME_SESSION_TTL", "forever"},
		"negative ttl":      {"BRIEFME_SESSION_TTL", "-1h"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s succeeded, want error", tt.key, tt.value)
			}
		})
	}
}
