package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "COGNIO"
	configDirName  = ".cognio"
	configFileName = "config.json"

	DefaultAPIURL         = "http://localhost:8080"
	DefaultTimeoutSeconds = 30
	DefaultLogLevel       = "info"
)

// Config is the resolved adapter configuration. Precedence is environment
// variables, then the config file, then built-in defaults. The API key
// additionally falls back to the system keyring.
type Config struct {
	APIURL         string `mapstructure:"api_url" json:"api_url"`
	APIKey         string `mapstructure:"api_key" json:"api_key,omitempty"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	LogLevel       string `mapstructure:"log_level" json:"log_level"`
}

// Timeout returns the backend request deadline, guarding against a
// non-positive value from a hand-edited config file.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Dir returns the configuration directory (~/.cognio).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDirName), nil
}

// FilePath returns the config file path (~/.cognio/config.json).
func FilePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load resolves configuration from environment variables, the config file,
// and defaults. A missing config file is not an error.
func Load() (*Config, error) {
	// Pick up a local .env if present. Best effort only.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("api_key", "")
	v.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Env and file take precedence; the keyring is the last place to look.
	if cfg.APIKey == "" {
		if key, err := RetrieveAPIKey(); err == nil {
			cfg.APIKey = key
		}
	}

	return &cfg, nil
}

// SaveFile writes cfg to ~/.cognio/config.json, creating the directory if
// needed. Permissions stay owner-only since the file may hold an API key.
func SaveFile(cfg *Config) error {
	path, err := FilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
