// Package storage provides the client's on-disk configuration and credential
// files, kept as JSON under a dot-directory.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"deepchat/src/types"
)

const (
	configFile      = "config.json"
	credentialsFile = "credentials.json"
)

// Config is the client configuration loaded from config.json.
type Config struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"` // 0 means no timeout
	LoginURL       string `json:"login_url,omitempty"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		BaseURL:  "http://localhost:5000",
		LoginURL: "http://localhost:5000/auth/login",
	}
}

// Timeout converts the configured timeout into a duration; zero means none.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EnsureEnvironment creates the config directory and default config file if
// missing. Returns the directory path used.
func EnsureEnvironment(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &types.StorageError{Message: "failed to create config directory", Err: err}
	}
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(dir, DefaultConfig()); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfig reads config.json, falling back to defaults if the file is absent.
func LoadConfig(dir string) (Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, &types.StorageError{Message: "failed to read config file", Err: err}
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, &types.StorageError{Message: "failed to parse config file", Err: err}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	return cfg, nil
}

// SaveConfig writes config.json.
func SaveConfig(dir string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return &types.StorageError{Message: "failed to marshal config", Err: err}
	}
	if err := os.WriteFile(filepath.Join(dir, configFile), data, 0644); err != nil {
		return &types.StorageError{Message: "failed to write config file", Err: err}
	}
	return nil
}
