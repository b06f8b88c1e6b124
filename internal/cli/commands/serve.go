package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/querypilot/querypilot-cli/internal/config"
	"github.com/querypilot/querypilot-cli/internal/httpserver"
)

// NewServeCommand starts the HTTP front door.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API (GET /, GET /health, POST /chat)",
		Action: func(c *cli.Context) error {
			serverCfg, err := config.LoadServer()
			if err != nil {
				return fmt.Errorf("failed to load server config: %w", err)
			}

			orch, err := buildOrchestrator()
			if err != nil {
				return err
			}

			fmt.Printf("querypilot HTTP API listening on %s\n", serverCfg.Addr())
			return httpserver.New(orch).Run(serverCfg.Addr())
		},
	}
}
