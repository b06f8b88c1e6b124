package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/querypilot/querypilot-cli/internal/config"
	"github.com/querypilot/querypilot-cli/internal/secrets"
)

func NewConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage QueryPilot configuration",
		Subcommands: []*cli.Command{
			{
				Name:      "set-token",
				Usage:     "Store the API access token (keyring, with file fallback)",
				ArgsUsage: "[token]",
				Action: func(c *cli.Context) error {
					token := c.Args().First()
					if token == "" {
						prompt := &survey.Password{Message: "Access token:"}
						if err := survey.AskOne(prompt, &token, survey.WithValidator(survey.Required)); err != nil {
							return err
						}
					}
					if err := secrets.StoreToken(token); err != nil {
						return fmt.Errorf("failed to store token: %w", err)
					}
					fmt.Println("✓ Access token stored")
					return nil
				},
			},
			{
				Name:  "clear-token",
				Usage: "Remove the stored access token",
				Action: func(c *cli.Context) error {
					if err := secrets.ClearToken(); err != nil {
						return fmt.Errorf("failed to clear token: %w", err)
					}
					fmt.Println("✓ Access token removed")
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show the resolved configuration",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					fmt.Printf("API base URL: %s\n", cfg.APIBaseURL)
					fmt.Printf("Access token: %s\n", maskToken(cfg.AccessToken))
					return nil
				},
			},
		},
	}
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
