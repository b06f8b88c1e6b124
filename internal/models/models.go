package models

import "strings"

// ChatIntentResult is the payload returned by the chat-intent endpoint.
// Either field may be empty: a conversational reply carries no SQL, and a
// pure data lookup may carry no commentary.
type ChatIntentResult struct {
	Communication string `json:"communication"`
	SQLQuery      string `json:"sql_query"`
}

// HasQuery reports whether the reply includes a query worth executing.
// Whitespace-only queries count as absent.
func (r *ChatIntentResult) HasQuery() bool {
	return strings.TrimSpace(r.SQLQuery) != ""
}

// QueryExecutionResult is the payload returned by the query-execution
// endpoint. Data is nil when the backend returned no row array at all,
// which is distinct from an empty result set.
type QueryExecutionResult struct {
	Data          []map[string]interface{} `json:"data"`
	Columns       []string                 `json:"columns"`
	Rows          int                      `json:"rows"`
	ExecutionTime *float64                 `json:"execution_time,omitempty"`
}

// RowCount returns the backend-reported row count, falling back to the
// length of the row array when the backend omitted it.
func (r *QueryExecutionResult) RowCount() int {
	if r.Rows > 0 {
		return r.Rows
	}
	return len(r.Data)
}

// RenderedReport is the final artifact handed back to the caller.
type RenderedReport struct {
	Text    string
	CSVPath string
}
