package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/cognio-labs/cognio-mcp/internal/cli/commands"
)

// Version will be set during build with ldflags
var Version = "1.2.0"

func main() {
	app := &cli.App{
		Name:    "cognio-mcp",
		Usage:   "MCP adapter for the Cognio semantic-memory backend",
		Version: Version,
		Commands: []*cli.Command{
			commands.NewSetupCommand(),
			commands.NewStatusCommand(),
			commands.NewKeyCommand(),
			commands.NewExportCommand(),
			commands.NewMcpCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
