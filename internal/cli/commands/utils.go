package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cognio-labs/cognio-mcp/internal/api"
	"github.com/cognio-labs/cognio-mcp/internal/config"
)

// newClient resolves configuration and builds a backend client with logging
// attached. Shared by every command that talks to the backend.
func newClient() (*api.Client, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	client := api.NewClient(cfg)
	client.Logger = newLogger(cfg)
	return client, cfg, nil
}

// newLogger builds the process logger. Logs go to stderr only; stdout is
// reserved for command output and, under `mcp serve`, the MCP protocol.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
