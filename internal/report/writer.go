package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONFileName is the report file written into the report directory.
const JSONFileName = "report.json"

// WriteJSON writes the report as indented JSON into dir, creating the
// directory if needed. Unlike the collection path, report I/O failures are
// fatal to the run and surfaced to the operator.
func WriteJSON(r *Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
