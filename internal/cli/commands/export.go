package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/cognio-labs/cognio-mcp/internal/mcp"
)

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export memories from the backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "export format (json|markdown)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "project",
				Aliases: []string{"p"},
				Usage:   "only export this project",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the export to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "render",
				Usage: "render markdown for the terminal",
			},
			&cli.BoolFlag{
				Name:  "copy",
				Usage: "copy the export to the clipboard",
			},
		},
		Action: func(c *cli.Context) error {
			format := strings.ToLower(c.String("format"))
			if format != "json" && format != "markdown" {
				return fmt.Errorf("format must be \"json\" or \"markdown\", got %q", format)
			}

			client, _, err := newClient()
			if err != nil {
				return err
			}

			raw, err := client.ExportMemories(c.Context, format, c.String("project"))
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			payload := mcp.DecodeExport(format, raw)

			if c.Bool("copy") {
				if err := clipboard.WriteAll(payload); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				fmt.Fprintln(os.Stderr, "Export copied to clipboard.")
			}

			if out := c.String("output"); out != "" {
				if err := os.WriteFile(out, []byte(payload), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Fprintf(os.Stderr, "Export written to %s\n", out)
				return nil
			}

			if format == "markdown" && c.Bool("render") {
				rendered, err := glamour.Render(payload, "dark")
				if err == nil {
					fmt.Print(rendered)
					return nil
				}
				// Fall through to the raw payload on render failure.
			}
			fmt.Println(payload)
			return nil
		},
	}
}
