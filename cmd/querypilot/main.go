package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/querypilot/querypilot-cli/internal/cli/commands"
)

// Version will be set during build with ldflags
var Version = "1.3.0"

func main() {
	app := &cli.App{
		Name:    "querypilot",
		Usage:   "Natural-language data queries from your terminal, MCP client, or HTTP",
		Version: Version,
		Commands: []*cli.Command{
			commands.NewAskCommand(),
			commands.NewMcpCommand(),
			commands.NewServeCommand(),

			commands.NewSetupCommand(),
			commands.NewConfigCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
