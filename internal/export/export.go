// Package export writes the derived tables as flat files for the
// reporting and visualization layer. Consumers key off the column
// names, so headers here are part of the external contract.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Table is a named tabular output.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// WriteCSV writes one table as <dir>/<name>.csv, creating the
// directory if needed.
func WriteCSV(dir string, t Table) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, t.Name+".csv"))
	if err != nil {
		return fmt.Errorf("export: create %s: %w", t.Name, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("export: write %s header: %w", t.Name, err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("export: write %s row: %w", t.Name, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON writes one document as <dir>/<name>.json.
func WriteJSON(dir, name string, data interface{}) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}

	file, err := os.Create(filepath.Join(dir, name+".json"))
	if err != nil {
		return fmt.Errorf("export: create %s: %w", name, err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("export: encode %s: %w", name, err)
	}
	return nil
}
