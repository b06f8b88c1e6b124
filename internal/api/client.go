package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/querypilot/querypilot-cli/internal/config"
	"github.com/querypilot/querypilot-cli/internal/models"
)

// conversationID keeps turn-taking context on the backend stable across
// calls from the same process.
const conversationID = "mcp_session"

// APIError is returned for any non-2xx response so callers can branch on
// the status code (401 vs 429 vs everything else).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	AccessToken string
}

// NewClient creates an API client from the resolved configuration.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:     cfg.APIBaseURL,
		AccessToken: cfg.AccessToken,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ChatIntent sends the user's message to the natural-language-to-SQL
// endpoint and returns the conversational reply plus the optional query.
func (c *Client) ChatIntent(ctx context.Context, message, model string) (*models.ChatIntentResult, error) {
	reqBody := map[string]string{
		"message":         message,
		"conversation_id": conversationID,
		"model":           model,
	}

	respBody, err := c.postJSON(ctx, "/chat", reqBody)
	if err != nil {
		return nil, err
	}

	// Missing fields decode to empty strings, which is fine: the
	// orchestrator treats absence and emptiness identically.
	var result models.ChatIntentResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat response: %w", err)
	}

	return &result, nil
}

// ExecuteQuery runs a SQL query through the query-execution endpoint.
func (c *Client) ExecuteQuery(ctx context.Context, query string) (*models.QueryExecutionResult, error) {
	reqBody := map[string]string{
		"query": query,
	}

	respBody, err := c.postJSON(ctx, "/query/execute", reqBody)
	if err != nil {
		return nil, err
	}

	var result models.QueryExecutionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution response: %w", err)
	}

	return &result, nil
}

// postJSON makes a bearer-authenticated POST and returns the response body
func (c *Client) postJSON(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	url := c.BaseURL + endpoint

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
