package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Routing.Threshold != 0.5 {
		t.Fatalf("threshold = %v", cfg.Routing.Threshold)
	}
	if !cfg.Providers.Anthropic.Enabled {
		t.Fatal("anthropic should be enabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
  pre_stream_timeout: 10s
routing:
  threshold: 0.7
providers:
  default: openai
  openai:
    enabled: true
    model: gpt-5.2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.PreStreamTimeout != 10*time.Second {
		t.Fatalf("pre_stream_timeout = %v", cfg.Server.PreStreamTimeout)
	}
	if cfg.Routing.Threshold != 0.7 {
		t.Fatalf("threshold = %v", cfg.Routing.Threshold)
	}
	if cfg.Providers.Default != "openai" {
		t.Fatalf("default provider = %q", cfg.Providers.Default)
	}
	// Unset file keys keep their defaults.
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Fatalf("idle_timeout = %v", cfg.Server.IdleTimeout)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AGENTFORGE_SERVER_ADDR", ":7070")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr = %q, want env override", cfg.Server.Addr)
	}
}

func TestThresholdOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("routing:\n  threshold: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for threshold 1.5")
	}
}

func TestNoProviderEnabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "providers:\n  anthropic:\n    enabled: false\n  openai:\n    enabled: false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when no provider is enabled")
	}
}
