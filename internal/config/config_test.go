package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.EventLogCapacity != 256 {
		t.Fatalf("event_log_capacity default = %d, want 256", cfg.EventLogCapacity)
	}
	if !cfg.Notify {
		t.Fatal("notify should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log_level default = %q, want info", cfg.LogLevel)
	}
	if !strings.HasSuffix(cfg.StateDir, ".planwg") {
		t.Fatalf("state_dir default = %q", cfg.StateDir)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
  "slack_bot_token": "xoxb-test",
  "user_id": "U123",
  "state_dir": "/tmp/planwg-test",
  "notify": false,
  "event_log_capacity": 8
}
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SlackBotToken != "xoxb-test" || cfg.UserID != "U123" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Notify {
		t.Fatal("notify override lost")
	}
	if cfg.EventLogCapacity != 8 {
		t.Fatalf("event_log_capacity = %d, want 8", cfg.EventLogCapacity)
	}
	if cfg.StateDir != "/tmp/planwg-test" {
		t.Fatalf("state_dir = %q", cfg.StateDir)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"log_level": "debug"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLANWG_LOG_LEVEL", "warn")
	t.Setenv("PLANWG_RECORD_BACKEND", "memory://")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log_level = %q, want warn", cfg.LogLevel)
	}
	if cfg.BackendDSN() != "memory://" {
		t.Fatalf("BackendDSN() = %q", cfg.BackendDSN())
	}
}

func TestBackendDSNFallsBackToStateDir(t *testing.T) {
	cfg := &Config{StateDir: "/var/lib/planwg"}
	if got := cfg.BackendDSN(); got != "/var/lib/planwg" {
		t.Fatalf("BackendDSN() = %q", got)
	}
}

func TestRequireSocketMode(t *testing.T) {
	cfg := &Config{}
	if err := cfg.RequireSocketMode(); err == nil {
		t.Fatal("expected error without tokens")
	}
	cfg.SlackBotToken = "xoxb-test"
	if err := cfg.RequireSocketMode(); err == nil {
		t.Fatal("expected error without app token")
	}
	cfg.SlackAppToken = "xapp-test"
	if err := cfg.RequireSocketMode(); err != nil {
		t.Fatalf("RequireSocketMode: %v", err)
	}
}
