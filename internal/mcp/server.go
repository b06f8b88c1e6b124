package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/querypilot/querypilot-cli/internal/orchestrator"
)

// ServeStdio starts the MCP server using the official go-sdk over stdio
func ServeStdio(orch *orchestrator.Orchestrator) error {
	if orch == nil {
		return errors.New("orchestrator is required")
	}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "querypilot",
			Version: "1.3.0",
		},
		&mcp.ServerOptions{
			Instructions: `📊 QUERYPILOT - Natural Language Data Queries

You are connected to QueryPilot. Ask questions about the connected data in
plain English and get back a finished report: the executed SQL, row counts,
and a table sized to the result set.

## How to use
- Call ask_data with a single, specific question, e.g.
  ask_data(prompt: "Show me tech stocks with PE under 20")
- If the answer is a clarifying question, answer it in your next ask_data call.
- Large result sets come back as a small sample plus a CSV file path. Use the
  file for charts, aggregates, or summaries — do NOT print the full set.

## Notes
- One question per call; there is no server-side retry. If a call fails with
  a transient error, you may simply ask again.
- Row tables are pipe-delimited and safe to show to the user as-is.`,
		},
	)

	registerTools(server, orch)

	return server.Run(context.Background(), &mcp.StdioTransport{})
}
