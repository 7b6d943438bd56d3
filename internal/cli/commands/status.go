package commands

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
)

var (
	healthyBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	unhealthyBadge = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#CC3333")).
			Padding(0, 1)
)

func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check backend connectivity and health",
		Action: func(c *cli.Context) error {
			client, cfg, err := newClient()
			if err != nil {
				return err
			}

			fmt.Printf("Backend:  %s\n", cfg.APIURL)
			if cfg.APIKey != "" {
				fmt.Println("API key:  configured")
			} else {
				fmt.Println("API key:  not set")
			}

			info, err := client.ServiceInfo(c.Context)
			if err != nil {
				fmt.Printf("Status:   %s\n", unhealthyBadge.Render("UNREACHABLE"))
				return fmt.Errorf("backend check failed: %w", err)
			}
			name := info.Name
			if info.Version != "" {
				name = fmt.Sprintf("%s %s", info.Name, info.Version)
			}
			fmt.Printf("Service:  %s\n", name)

			health, err := client.Health(c.Context)
			if err != nil || health.Status != "healthy" {
				fmt.Printf("Status:   %s\n", unhealthyBadge.Render("UNHEALTHY"))
				if err != nil {
					return fmt.Errorf("health check failed: %w", err)
				}
				return fmt.Errorf("backend reported status %q", health.Status)
			}

			fmt.Printf("Status:   %s\n", healthyBadge.Render("HEALTHY"))
			return nil
		},
	}
}
