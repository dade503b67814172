// Package config loads tool configuration from defaults, an optional JSON
// config file, and PLANWG_-prefixed environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PLANWG_"

// Config is the resolved tool configuration.
type Config struct {
	SlackBotToken    string `koanf:"slack_bot_token"`
	SlackAppToken    string `koanf:"slack_app_token"`
	UserID           string `koanf:"user_id"`
	StateDir         string `koanf:"state_dir"`
	RecordBackend    string `koanf:"record_backend"`
	Notify           bool   `koanf:"notify"`
	EventLogCapacity int    `koanf:"event_log_capacity"`
	LogLevel         string `koanf:"log_level"`
}

// Load reads configuration. An empty configPath falls back to
// $HOME/.planwg/config.json when that file exists; a missing default file
// is not an error, a missing explicit one is.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	home, _ := os.UserHomeDir()
	defaultStateDir := filepath.Join(home, ".planwg")

	k.Load(confmap.Provider(map[string]interface{}{
		"state_dir":          defaultStateDir,
		"notify":             true,
		"event_log_capacity": 256,
		"log_level":          "info",
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), json.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
	} else {
		defaultPath := filepath.Join(defaultStateDir, "config.json")
		if _, err := os.Stat(defaultPath); err == nil {
			if err := k.Load(file.Provider(defaultPath), json.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", defaultPath, err)
			}
		}
	}

	k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// BackendDSN is the record backend DSN, defaulting to the file backend
// rooted at the state directory.
func (c *Config) BackendDSN() string {
	if strings.TrimSpace(c.RecordBackend) != "" {
		return c.RecordBackend
	}
	return c.StateDir
}

// RequireSlack verifies the tokens needed for any remote operation.
func (c *Config) RequireSlack() error {
	if strings.TrimSpace(c.SlackBotToken) == "" {
		return fmt.Errorf("slack_bot_token is not configured (set PLANWG_SLACK_BOT_TOKEN)")
	}
	return nil
}

// RequireSocketMode verifies the app-level token the daemon's socket
// connection needs on top of the bot token.
func (c *Config) RequireSocketMode() error {
	if err := c.RequireSlack(); err != nil {
		return err
	}
	if strings.TrimSpace(c.SlackAppToken) == "" {
		return fmt.Errorf("slack_app_token is not configured (set PLANWG_SLACK_APP_TOKEN)")
	}
	return nil
}
