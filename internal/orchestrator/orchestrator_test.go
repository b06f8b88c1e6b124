package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/querypilot/querypilot-cli/internal/api"
)

func newTestOrchestrator(handler http.Handler) (*Orchestrator, *httptest.Server) {
	ts := httptest.NewServer(handler)
	client := &api.Client{
		BaseURL:     ts.URL,
		HTTPClient:  ts.Client(),
		AccessToken: "test-token",
	}
	return New(client), ts
}

// chatResponse writes a chat-intent payload.
func chatResponse(w http.ResponseWriter, communication, sqlQuery string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"communication": communication,
		"sql_query":     sqlQuery,
	})
}

func TestExecuteBlankPrompt(t *testing.T) {
	calls := 0
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	for _, prompt := range []string{"", "   ", "\n\t"} {
		out := orch.Execute(context.Background(), prompt)
		if !strings.Contains(out, "Please provide a question") {
			t.Errorf("Execute(%q) = %q, want instructional message", prompt, out)
		}
	}

	if calls != 0 {
		t.Errorf("blank prompt issued %d network calls, want 0", calls)
	}
}

func TestExecuteMissingToken(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	orch := New(&api.Client{BaseURL: ts.URL, HTTPClient: ts.Client()})

	out := orch.Execute(context.Background(), "show me everything")
	if !strings.Contains(out, "Access token is not configured") {
		t.Errorf("Execute() = %q, want configuration error", out)
	}
	if calls != 0 {
		t.Errorf("missing token issued %d network calls, want 0", calls)
	}
}

func TestChatRequestShape(t *testing.T) {
	var got map[string]string
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("request path = %q, want /chat", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		chatResponse(w, "All good.", "")
	}))
	defer ts.Close()

	orch.Execute(context.Background(), "list the top products")

	if got["conversation_id"] != "mcp_session" {
		t.Errorf("conversation_id = %q, want mcp_session", got["conversation_id"])
	}
	if got["model"] != DefaultModel {
		t.Errorf("model = %q, want %q", got["model"], DefaultModel)
	}
	if !strings.HasPrefix(got["message"], "list the top products") {
		t.Errorf("message does not start with the prompt: %q", got["message"])
	}
	if !strings.Contains(got["message"], "Do not add a LIMIT clause") {
		t.Errorf("message missing unbounded-result instruction: %q", got["message"])
	}
}

func TestConversationalReply(t *testing.T) {
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatResponse(w, "The database holds daily stock prices since 2010.", "")
	}))
	defer ts.Close()

	out := orch.Execute(context.Background(), "what data do you have?")
	if out != "The database holds daily stock prices since 2010." {
		t.Errorf("conversational reply not returned verbatim: %q", out)
	}
}

func TestClarifyingQuestion(t *testing.T) {
	tests := []struct {
		name          string
		communication string
	}{
		{"question mark", "Which fiscal year do you mean?"},
		{"clarif substring", "I need some CLARIFICATION on the region."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chatResponse(w, tt.communication, "")
			}))
			defer ts.Close()

			out := orch.Execute(context.Background(), "show sales")
			if !strings.Contains(out, "Clarification needed:") {
				t.Errorf("Execute() = %q, want clarifying-question callout", out)
			}
			if !strings.Contains(out, tt.communication) {
				t.Errorf("Execute() = %q, want original communication included", out)
			}
		})
	}
}

func TestModelEscalationAndReset(t *testing.T) {
	var models []string
	fail := true
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req["model"])
		if fail {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}
		chatResponse(w, "Recovered.", "")
	}))
	defer ts.Close()

	// Three consecutive non-auth failures
	for i := 0; i < 3; i++ {
		out := orch.Execute(context.Background(), "q")
		if !strings.Contains(out, "status 500") {
			t.Fatalf("call %d: %q, want generic API error with status", i+1, out)
		}
	}
	for i, m := range models {
		if m != DefaultModel {
			t.Errorf("call %d used model %q before threshold, want %q", i+1, m, DefaultModel)
		}
	}

	// Threshold reached: next call selects the fallback and succeeds
	fail = false
	out := orch.Execute(context.Background(), "q")
	if models[3] != FallbackModel {
		t.Errorf("call 4 used model %q, want fallback %q", models[3], FallbackModel)
	}
	if !strings.Contains(out, FallbackModel) {
		t.Errorf("switch notice missing fallback model name: %q", out)
	}

	// Success reset the counter: back to the default, no notice
	out = orch.Execute(context.Background(), "q")
	if models[4] != DefaultModel {
		t.Errorf("call 5 used model %q after reset, want %q", models[4], DefaultModel)
	}
	if strings.Contains(out, "fallback model") {
		t.Errorf("switch notice should not fire after reset: %q", out)
	}
}

func TestFallbackStaysSelectedWhileFailing(t *testing.T) {
	var models []string
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req["model"])
		http.Error(w, "still down", http.StatusInternalServerError)
	}))
	defer ts.Close()

	for i := 0; i < 5; i++ {
		orch.Execute(context.Background(), "q")
	}

	// Calls 4 and 5 run with the counter at 3 and 4 respectively
	if models[3] != FallbackModel || models[4] != FallbackModel {
		t.Errorf("models = %v, want fallback from call 4 onward", models)
	}
}

func Test401NeverEscalates(t *testing.T) {
	var models []string
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req["model"])
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer ts.Close()

	for i := 0; i < 5; i++ {
		out := orch.Execute(context.Background(), "q")
		if !strings.Contains(out, "Authentication failed") {
			t.Fatalf("call %d: %q, want authentication-failure message", i+1, out)
		}
	}

	for i, m := range models {
		if m != DefaultModel {
			t.Errorf("call %d used model %q, want %q regardless of 401 count", i+1, m, DefaultModel)
		}
	}
}

func TestRateLimitCountsTowardEscalation(t *testing.T) {
	var models []string
	status := http.StatusTooManyRequests
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req["model"])
		if status != 0 {
			http.Error(w, "slow down", status)
			return
		}
		chatResponse(w, "ok", "")
	}))
	defer ts.Close()

	for i := 0; i < 3; i++ {
		out := orch.Execute(context.Background(), "q")
		if !strings.Contains(out, "rate limiting") {
			t.Fatalf("call %d: %q, want rate-limit message", i+1, out)
		}
	}

	status = 0
	orch.Execute(context.Background(), "q")
	if models[3] != FallbackModel {
		t.Errorf("call 4 used model %q, want %q after three 429s", models[3], FallbackModel)
	}
}

func TestExecutionFailureDoesNotEscalate(t *testing.T) {
	var models []string
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			models = append(models, req["model"])
			chatResponse(w, "Running it now.", "SELECT * FROM trades")
		case "/query/execute":
			http.Error(w, "relation trades does not exist", http.StatusBadRequest)
		}
	}))
	defer ts.Close()

	for i := 0; i < 4; i++ {
		out := orch.Execute(context.Background(), "q")
		if !strings.Contains(out, "Query execution failed") {
			t.Fatalf("call %d: %q, want execution-failure message", i+1, out)
		}
		if !strings.Contains(out, "relation trades does not exist") {
			t.Errorf("call %d missing raw error body: %q", i+1, out)
		}
	}

	// Rejected queries reflect SQL quality, not chat model health
	for i, m := range models {
		if m != DefaultModel {
			t.Errorf("call %d used model %q, want %q", i+1, m, DefaultModel)
		}
	}
}

func TestNoDataNotice(t *testing.T) {
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			chatResponse(w, "Checking the archive.", "SELECT 1")
		case "/query/execute":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"rows": 0}`)
		}
	}))
	defer ts.Close()

	out := orch.Execute(context.Background(), "q")
	if !strings.Contains(out, "Checking the archive.") {
		t.Errorf("communication missing from no-data report: %q", out)
	}
	if !strings.Contains(out, "returned no data") {
		t.Errorf("no-data notice missing: %q", out)
	}
}

func TestEndToEnd(t *testing.T) {
	const query = "SELECT ticker, name, pe FROM stocks WHERE sector = 'tech' AND pe < 20"

	var executed string
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat":
			chatResponse(w, "Here are the results", query)
		case "/query/execute":
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			executed = req["query"]

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"ticker": "ACME", "name": "Acme Corp", "pe": 12.5},
					{"ticker": "GLOBX", "name": "Globex", "pe": 18},
					{"ticker": "INIT", "name": "Initech", "pe": 9},
				},
				"columns":        []string{"ticker", "name", "pe"},
				"rows":           3,
				"execution_time": 0.42,
			})
		}
	}))
	defer ts.Close()

	out := orch.Execute(context.Background(), "Show me tech stocks with PE under 20")

	if executed != query {
		t.Errorf("executed query = %q, want the chat-intent query verbatim", executed)
	}
	for _, want := range []string{
		"Here are the results",
		query,
		"Rows returned: 3 (0.42s)",
		"| ticker | name | pe |",
		"| ACME | Acme Corp | 12.5 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestTimeoutMessage(t *testing.T) {
	orch, ts := newTestOrchestrator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		chatResponse(w, "too late", "")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := orch.Execute(ctx, "q")
	if !strings.Contains(out, "timed out") {
		t.Errorf("Execute() = %q, want timeout message", out)
	}
	if !strings.Contains(out, "simplifying") {
		t.Errorf("timeout message missing simplify guidance: %q", out)
	}
	if orch.failureCount() != 1 {
		t.Errorf("failure count = %d after timeout, want 1", orch.failureCount())
	}
}

func TestConnectivityErrorMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse all connections

	orch := New(&api.Client{
		BaseURL:     ts.URL,
		HTTPClient:  &http.Client{Timeout: time.Second},
		AccessToken: "test-token",
	})

	out := orch.Execute(context.Background(), "q")
	if !strings.Contains(out, "Could not reach the chat service") {
		t.Errorf("Execute() = %q, want connectivity message", out)
	}
	if orch.failureCount() != 1 {
		t.Errorf("failure count = %d, want 1", orch.failureCount())
	}
}
