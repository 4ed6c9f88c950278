package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"FIELDINSIGHTS_CONFIG", "PORT", "DATABASE_URL", "YIELD_MODEL_PATH", "HEALTH_MODEL_PATH", "YIELD_MODEL_URL", "SESSION_TTL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.SessionTTL != 30*time.Minute || cfg.RequestTimeout != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.UsePostgres() {
		t.Error("no database should be configured by default")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "fieldinsights.yaml")
	doc := `
port: "9090"
database_url: postgres://file/db
session_ttl: 1h
models:
  yield_path: /models/yield.yaml
  remote_retries: 4
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FIELDINSIGHTS_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("HEALTH_MODEL_PATH", "/models/health.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "9090" || cfg.SessionTTL != time.Hour {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Errorf("DATABASE_URL should override the file, got %q", cfg.DatabaseURL)
	}
	if cfg.Models.YieldPath != "/models/yield.yaml" || cfg.Models.HealthPath != "/models/health.yaml" || cfg.Models.RemoteRetries != 4 {
		t.Errorf("model settings = %+v", cfg.Models)
	}
	if cfg.Models.BreakerFailures != 5 {
		t.Errorf("unset file keys should keep defaults, got %d", cfg.Models.BreakerFailures)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"missing file", map[string]string{"FIELDINSIGHTS_CONFIG": "/nonexistent/config.yaml"}},
		{"bad ttl", map[string]string{"SESSION_TTL": "soon"}},
		{"bad port", map[string]string{"PORT": "http"}},
		{"negative ttl", map[string]string{"SESSION_TTL": "-1m"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
