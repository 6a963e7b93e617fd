package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file returned error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("default port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Audit.Type != "memory" {
		t.Errorf("default audit type = %q, want memory", cfg.Audit.Type)
	}
	if cfg.LogLevel() != "info" {
		t.Errorf("default log level = %q, want info", cfg.LogLevel())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 8080\n  timeout: 30s\nspec:\n  source: ./openapi.yaml\naudit:\n  type: sqlite\n  path: ./audit.db\ngenerator:\n  seed: 42\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Server.Timeout)
	}
	if cfg.Spec.Source != "./openapi.yaml" {
		t.Errorf("spec source = %q", cfg.Spec.Source)
	}
	if cfg.Audit.Type != "sqlite" || cfg.Audit.Path != "./audit.db" {
		t.Errorf("audit = %+v", cfg.Audit)
	}
	if cfg.Generator.Seed != 42 {
		t.Errorf("generator seed = %d, want 42", cfg.Generator.Seed)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MOCKSMITH_SERVER__PORT", "9999")
	t.Setenv("MOCKSMITH_LOGGING__LEVEL", "DEBUG")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want the env override 9999", cfg.Server.Port)
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel())
	}
}
