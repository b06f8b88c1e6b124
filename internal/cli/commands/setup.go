package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/querypilot/querypilot-cli/internal/config"
	"github.com/querypilot/querypilot-cli/internal/secrets"
)

// NewSetupCommand creates the interactive first-run command.
func NewSetupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Interactive first-run configuration",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			baseURL := cfg.APIBaseURL
			if err := survey.AskOne(&survey.Input{
				Message: "API base URL:",
				Default: baseURL,
			}, &baseURL); err != nil {
				return err
			}

			var token string
			if err := survey.AskOne(&survey.Password{
				Message: "Access token:",
			}, &token, survey.WithValidator(survey.Required)); err != nil {
				return err
			}

			cfg.APIBaseURL = baseURL
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			if err := secrets.StoreToken(token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}

			fmt.Println("✓ Setup complete. Try: querypilot ask \"Show me tech stocks with PE under 20\"")
			return nil
		},
	}
}
