package render

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Exporter persists large result sets as CSV alongside the rendered sample,
// so callers can point tooling at the full data instead of a truncated dump.
type Exporter struct {
	Dir string

	// Now is swappable for deterministic file names in tests
	Now func() time.Time
}

func NewExporter(dir string) *Exporter {
	return &Exporter{Dir: dir, Now: time.Now}
}

// RenderAndExport behaves like Render, but when the set exceeds the sampled
// threshold it also writes the complete data to a timestamped CSV file and
// appends its location to the report.
func (e *Exporter) RenderAndExport(rows []map[string]interface{}, columns []string) string {
	text := Render(rows, columns)
	if len(rows) <= captionedMax {
		return text
	}

	path, err := e.WriteCSV(rows, columns)
	if err != nil {
		return text + fmt.Sprintf("\n\nCSV export failed: %v", err)
	}
	return text + fmt.Sprintf("\n\nFull result set (%d rows) saved to: %s", len(rows), path)
}

// WriteCSV writes all rows to a new timestamped file under the export
// directory and returns its path. Nulls are written as empty strings;
// encoding/csv handles quote-wrapping and quote-doubling.
func (e *Exporter) WriteCSV(rows []map[string]interface{}, columns []string) (string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("query_%s.csv", e.Now().Format("20060102_150405"))
	path := filepath.Join(e.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return "", err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = rawCell(row[col])
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return path, nil
}
