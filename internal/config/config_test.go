package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.WebSocket.ConnectTimeout != 10*time.Second {
		t.Errorf("expected 10s connect timeout, got %v", cfg.WebSocket.ConnectTimeout)
	}
	if cfg.WebSocket.BackoffBase != 2*time.Second {
		t.Errorf("expected 2s backoff base, got %v", cfg.WebSocket.BackoffBase)
	}
	if cfg.WebSocket.MaxRetries != 5 {
		t.Errorf("expected 5 max retries, got %d", cfg.WebSocket.MaxRetries)
	}
	if cfg.Room.ExpiryWindow != 5*time.Minute {
		t.Errorf("expected 5m expiry window, got %v", cfg.Room.ExpiryWindow)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("ws:\n  url: wss://chat.example.com/ws/chat\n  max_retries: 3\nlog:\n  level: debug\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WebSocket.URL != "wss://chat.example.com/ws/chat" {
		t.Errorf("file value not applied, got %s", cfg.WebSocket.URL)
	}
	if cfg.WebSocket.MaxRetries != 3 {
		t.Errorf("expected 3 max retries from file, got %d", cfg.WebSocket.MaxRetries)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("TUTORLINK_WS_URL", "wss://env.example.com/ws/chat")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.WebSocket.URL != "wss://env.example.com/ws/chat" {
		t.Errorf("env override not applied, got %s", cfg.WebSocket.URL)
	}
}

func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"empty ws url", func(c *Config) { c.WebSocket.URL = "" }},
		{"http scheme on ws url", func(c *Config) { c.WebSocket.URL = "http://example.com/ws" }},
		{"zero connect timeout", func(c *Config) { c.WebSocket.ConnectTimeout = 0 }},
		{"negative retries", func(c *Config) { c.WebSocket.MaxRetries = -1 }},
		{"empty cache path", func(c *Config) { c.Cache.Path = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
