package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/cognio-labs/cognio-mcp/internal/config"
)

func NewKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "key",
		Usage: "Manage the backend API key",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Store the API key in the system keyring",
				Action: func(c *cli.Context) error {
					key, err := promptForKey()
					if err != nil {
						return err
					}
					if key == "" {
						return fmt.Errorf("API key cannot be empty")
					}
					if err := config.StoreAPIKey(key); err != nil {
						return err
					}
					fmt.Printf("API key stored (%s).\n", config.StorageMode())
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show the stored API key (masked)",
				Action: func(c *cli.Context) error {
					key, err := config.RetrieveAPIKey()
					if err != nil {
						return fmt.Errorf("no API key stored: %w", err)
					}
					fmt.Printf("API key: %s (%s)\n", maskKey(key), config.StorageMode())
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Remove the stored API key",
				Action: func(c *cli.Context) error {
					if !config.HasAPIKey() {
						fmt.Println("No API key stored.")
						return nil
					}
					if err := config.DeleteAPIKey(); err != nil {
						return err
					}
					fmt.Println("API key removed.")
					return nil
				},
			},
		},
	}
}

// promptForKey reads the key without echo when stdin is a terminal, and
// falls back to a plain line read for piped input.
func promptForKey() (string, error) {
	fmt.Print("Enter API key: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("could not read key: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("could not read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// maskKey hides all but the last four characters.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
