// Package render turns a result set into a size-appropriate text report.
// Small sets become complete tables; large sets become a head/tail sample
// with guidance, optionally persisted as CSV (see export.go).
package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Presentation thresholds. Selected purely by row count.
const (
	fullTableMax = 5
	captionedMax = 20
	sampleHead   = 3
	sampleTail   = 2
)

var numPrinter = message.NewPrinter(language.English)

// Render produces the text report for a result set. It is a pure function
// of its inputs; column order in every row follows the supplied column
// list, and columns absent from a row render as "null".
func Render(rows []map[string]interface{}, columns []string) string {
	switch {
	case len(rows) == 0:
		return "No results found."
	case len(rows) <= fullTableMax:
		return table(rows, columns)
	case len(rows) <= captionedMax:
		return fmt.Sprintf("Complete dataset (%d rows):\n\n%s", len(rows), table(rows, columns))
	default:
		return sample(rows, columns)
	}
}

// sample renders the first and last few rows of a large result set with
// explicit warnings against dumping the whole thing into a conversation.
func sample(rows []map[string]interface{}, columns []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Large result set: %d rows total. Showing the first %d and last %d rows as a sample.\n",
		len(rows), sampleHead, sampleTail)
	b.WriteString("Do not print the full result set. Work with it programmatically instead: aggregate, chart, or summarize.\n\n")

	b.WriteString(table(rows[:sampleHead], columns))
	fmt.Fprintf(&b, "\n... %d rows omitted ...\n\n", len(rows)-sampleHead-sampleTail)
	b.WriteString(table(rows[len(rows)-sampleTail:], columns))

	return b.String()
}

// table renders a complete pipe-delimited table of the given rows.
func table(rows []map[string]interface{}, columns []string) string {
	var b strings.Builder

	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")

	seps := make([]string, len(columns))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = FormatCell(row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return b.String()
}

// FormatCell converts a single value for display: nil becomes the literal
// "null", numbers get locale grouping ("1,234,567"), everything else is a
// plain string conversion.
func FormatCell(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case float64:
		// JSON numbers arrive as float64; integral values display as
		// grouped integers rather than "1.234567e+06"
		if n == math.Trunc(n) && math.Abs(n) < 1e15 {
			return numPrinter.Sprintf("%d", int64(n))
		}
		return numPrinter.Sprintf("%v", number.Decimal(n))
	case int:
		return numPrinter.Sprintf("%d", n)
	case int64:
		return numPrinter.Sprintf("%d", n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return numPrinter.Sprintf("%d", i)
		}
		if f, err := n.Float64(); err == nil {
			return numPrinter.Sprintf("%v", number.Decimal(f))
		}
		return n.String()
	default:
		return fmt.Sprintf("%v", n)
	}
}

// rawCell converts a value for CSV persistence: nil becomes empty, numbers
// keep their exact unformatted representation so the file round-trips.
func rawCell(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", n)
	}
}
