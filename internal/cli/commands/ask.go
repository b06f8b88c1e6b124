package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v2"

	"github.com/querypilot/querypilot-cli/internal/api"
	"github.com/querypilot/querypilot-cli/internal/config"
	"github.com/querypilot/querypilot-cli/internal/orchestrator"
	"github.com/querypilot/querypilot-cli/internal/render"
)

// NewAskCommand creates the one-shot question command.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a natural-language question about your data",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "print the raw report without terminal markdown rendering",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "overall deadline for the question",
				Value: 2 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("a question is required, e.g.: querypilot ask \"Show me tech stocks with PE under 20\"")
			}
			question := strings.Join(c.Args().Slice(), " ")

			orch, err := buildOrchestrator()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			report := orch.Execute(ctx, question)

			if c.Bool("plain") {
				fmt.Println(report)
				return nil
			}

			out, err := glamour.Render(report, "dark")
			if err != nil {
				// Markdown rendering is cosmetic; fall back to raw text
				fmt.Println(report)
				return nil
			}
			fmt.Print(out)
			return nil
		},
	}
}

// buildOrchestrator wires config, client, and the CSV-exporting renderer.
func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	exportDir, err := config.ExportDir()
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg)
	exporter := render.NewExporter(exportDir)
	return orchestrator.NewWithRenderer(client, exporter.RenderAndExport), nil
}
