package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/querypilot/querypilot-cli/internal/orchestrator"
)

// AskDataInput is the single-tool schema: one prompt in, one text block out.
type AskDataInput struct {
	Prompt string `json:"prompt"` // Natural-language question about the data
}

func registerTools(server *mcp.Server, orch *orchestrator.Orchestrator) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_data",
		Description: `Ask a natural-language question about the connected data.

REQUIRED: prompt

The question is translated to SQL, executed, and returned as a finished
report. Small result sets come back as a complete table; large ones as a
sample plus a CSV file path.

Example: ask_data(prompt: "Show me tech stocks with PE under 20")`,
		Annotations: &mcp.ToolAnnotations{
			Title:         "Ask Data",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(true),
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input AskDataInput) (*mcp.CallToolResult, interface{}, error) {
		report := orch.Execute(ctx, input.Prompt)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: report},
			},
		}, nil, nil
	})
}

func boolPtr(b bool) *bool { return &b }
