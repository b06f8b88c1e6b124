// Package orchestrator drives the two-step remote call sequence that turns
// a natural-language question into a finished report: chat-intent first,
// then (when the reply carries SQL) query execution and rendering.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/querypilot/querypilot-cli/internal/api"
	"github.com/querypilot/querypilot-cli/internal/render"
)

const (
	// DefaultModel handles the normal case; FallbackModel takes over after
	// repeated transient upstream failures.
	DefaultModel  = "gpt-4.1"
	FallbackModel = "gpt-5"

	// failureThreshold is the consecutive non-auth failure count at which
	// the fallback model is selected.
	failureThreshold = 3
)

// unboundedInstruction is appended to every prompt so the backend returns
// the full result set instead of a capped preview; the renderer handles
// size, not the query.
const unboundedInstruction = "\n\nImportant: return the complete result set for this question. Do not add a LIMIT clause or cap the number of rows unless the question itself asks for one."

// RenderFunc turns a row set and column list into report text.
type RenderFunc func(rows []map[string]interface{}, columns []string) string

// Orchestrator owns the process-lifetime failure counter. One instance is
// shared across invocations; the mutex keeps read-then-increment safe if
// the MCP or HTTP layer ever overlaps calls.
type Orchestrator struct {
	client   *api.Client
	renderFn RenderFunc

	mu                  sync.Mutex
	consecutiveFailures int
}

// New creates an orchestrator with the plain text renderer.
func New(client *api.Client) *Orchestrator {
	return &Orchestrator{client: client, renderFn: render.Render}
}

// NewWithRenderer creates an orchestrator with a custom renderer, e.g. the
// CSV-exporting variant.
func NewWithRenderer(client *api.Client, fn RenderFunc) *Orchestrator {
	return &Orchestrator{client: client, renderFn: fn}
}

// Execute answers a single prompt. Every failure path is converted to
// descriptive text; nothing escapes this boundary as an error.
func (o *Orchestrator) Execute(ctx context.Context, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return "Please provide a question about your data, for example: \"Show me tech stocks with PE under 20\"."
	}
	if o.client.AccessToken == "" {
		return "Access token is not configured. Set QUERYPILOT_TOKEN or run 'querypilot config set-token' before asking questions."
	}

	// Read the counter before the call: both model selection and the
	// switch notice depend on the pre-call value, not the post-reset one.
	preFailures := o.failureCount()
	model := DefaultModel
	if preFailures >= failureThreshold {
		model = FallbackModel
	}

	intent, err := o.client.ChatIntent(ctx, prompt+unboundedInstruction, model)
	if err != nil {
		return o.chatFailureMessage(err)
	}

	o.resetFailures()

	var report strings.Builder
	if preFailures >= failureThreshold {
		fmt.Fprintf(&report, "Note: switched to fallback model %s after repeated upstream failures.\n\n", FallbackModel)
	}

	communication := strings.TrimSpace(intent.Communication)

	if !intent.HasQuery() {
		// Conversational branch: no data lookup needed
		if isClarification(communication) {
			report.WriteString("Clarification needed:\n\n")
		}
		report.WriteString(communication)
		return report.String()
	}

	sqlQuery := strings.TrimSpace(intent.SQLQuery)
	result, err := o.client.ExecuteQuery(ctx, sqlQuery)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			// An execution-endpoint rejection reflects the generated query,
			// not the chat model's health, so it does not escalate
			return fmt.Sprintf("Query execution failed: %s", apiErr.Body)
		}
		o.recordFailure()
		if isTimeout(err) {
			return "The query timed out. Try simplifying your question or narrowing its scope."
		}
		return fmt.Sprintf("Could not reach the query service: %v", err)
	}

	if communication != "" {
		report.WriteString(communication + "\n\n")
	}

	if result.Data == nil {
		report.WriteString("The query ran but returned no data.")
		return report.String()
	}

	report.WriteString("Executed query:\n```sql\n" + sqlQuery + "\n```\n\n")
	if result.ExecutionTime != nil {
		fmt.Fprintf(&report, "Rows returned: %d (%.2fs)\n\n", result.RowCount(), *result.ExecutionTime)
	} else {
		fmt.Fprintf(&report, "Rows returned: %d\n\n", result.RowCount())
	}

	report.WriteString(o.renderFn(result.Data, result.Columns))
	return report.String()
}

// chatFailureMessage maps a chat-intent failure to user-facing text and
// updates the failure counter. 401 never escalates; everything else does.
func (o *Orchestrator) chatFailureMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return "Authentication failed (401). Your access token was rejected; refresh it and try again."
		case http.StatusTooManyRequests:
			o.recordFailure()
			return "The chat service is rate limiting requests (429). Wait a moment before asking again."
		default:
			o.recordFailure()
			return fmt.Sprintf("The chat service returned an error (status %d): %s", apiErr.StatusCode, apiErr.Body)
		}
	}

	o.recordFailure()
	if isTimeout(err) {
		return "The request timed out. Try simplifying your question or narrowing its scope."
	}
	return fmt.Sprintf("Could not reach the chat service: %v", err)
}

func (o *Orchestrator) failureCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.consecutiveFailures
}

func (o *Orchestrator) recordFailure() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consecutiveFailures++
}

func (o *Orchestrator) resetFailures() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.consecutiveFailures = 0
}

// isClarification recognizes replies that are really questions back to the
// user rather than answers.
func isClarification(communication string) bool {
	return strings.Contains(communication, "?") ||
		strings.Contains(strings.ToLower(communication), "clarif")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
