// Package config holds the engine's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Agent     AgentConfig     `yaml:"agent"`
	Redaction RedactionConfig `yaml:"redaction"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WorkspaceConfig pins the engine to one directory tree.
type WorkspaceConfig struct {
	// Root is the only directory the engine may list or read notebooks
	// from.
	Root string `yaml:"root"`
	// SessionDB is the sqlite file holding chat sessions.
	SessionDB string `yaml:"session_db"`
	// SettingsPath overrides ~/.mynerva/config.json.
	SettingsPath string `yaml:"settings_path"`
}

// AgentConfig tunes the conversation loop.
type AgentConfig struct {
	// MaxRetries bounds the extra attempts after a malformed or invalid
	// model reply. The first attempt is not counted.
	MaxRetries int `yaml:"max_retries"`
}

// RedactionConfig configures the outbound masking pipeline.
type RedactionConfig struct {
	Enabled bool            `yaml:"enabled"`
	Rules   []RedactionRule `yaml:"rules"`
}

// RedactionRule is one pattern/label pair, applied in listed order.
type RedactionRule struct {
	Pattern string `yaml:"pattern"`
	Label   string `yaml:"label"`
}

// LoggingConfig selects the logger flavor.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: "127.0.0.1:8765"},
		Workspace: WorkspaceConfig{Root: ".", SessionDB: "mynerva-sessions.db"},
		Agent:     AgentConfig{MaxRetries: 2},
		Redaction: RedactionConfig{Enabled: true},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads the config file at path, layering it over the defaults. A
// missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.Agent.MaxRetries < 0 {
		return cfg, fmt.Errorf("config %s: max_retries must be >= 0", path)
	}
	return cfg, nil
}

// DefaultPath is ~/.mynerva/engine.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mynerva", "engine.yaml"), nil
}
