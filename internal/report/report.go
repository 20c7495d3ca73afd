// Package report turns an analysis database into reviewable artifacts:
// audit CSVs under the reports directory, schema and documentation
// markdown under the doc directory, and a mermaid class diagram.
//
// Writers only read the store. Reports can be regenerated from an
// existing database without rescanning sources.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// timestamp is the generation stamp used in markdown headers.
func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// flagWord renders a signature flag as its keyword or an empty cell,
// e.g. flagWord(m.IsAsync, "async").
func flagWord(b bool, word string) string {
	if b {
		return word
	}
	return ""
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) }

// writeCSV writes one header row followed by the data rows.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	records = append(records, rows...)
	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// writeDoc writes a markdown document, creating the directory if needed.
func writeDoc(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create doc dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
