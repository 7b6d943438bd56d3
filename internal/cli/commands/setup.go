package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/cognio-labs/cognio-mcp/internal/config"
)

func NewSetupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Interactively configure the backend connection",
		Action: func(c *cli.Context) error {
			return runSetup()
		},
	}
}

func runSetup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	questions := []*survey.Question{
		{
			Name: "apiURL",
			Prompt: &survey.Input{
				Message: "Backend URL:",
				Default: cfg.APIURL,
			},
			Validate: survey.Required,
		},
		{
			Name: "apiKey",
			Prompt: &survey.Password{
				Message: "API key (leave empty if the backend is open):",
			},
		},
	}

	answers := struct {
		APIURL string `survey:"apiURL"`
		APIKey string `survey:"apiKey"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.APIURL = answers.APIURL

	// Keys go to the keyring when possible; the config file only carries one
	// if the user declines keyring storage.
	cfg.APIKey = ""
	if answers.APIKey != "" {
		useKeyring := true
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Store the key in the system keyring (%s)?", config.StorageMode()),
			Default: true,
		}
		if err := survey.AskOne(prompt, &useKeyring); err != nil {
			return err
		}
		if useKeyring {
			if err := config.StoreAPIKey(answers.APIKey); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}
		} else {
			cfg.APIKey = answers.APIKey
		}
	}

	if err := config.SaveFile(cfg); err != nil {
		return err
	}
	path, _ := config.FilePath()
	fmt.Printf("Configuration written to %s\n", path)
	fmt.Println("Run 'cognio-mcp status' to verify the connection.")
	return nil
}
