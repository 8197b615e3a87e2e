// Package artifacts writes the files a sync leaves behind for later CI steps.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RunDataFile is the default name of the run hand-off document.
const RunDataFile = "testrail-run-data.json"

// Writer writes artifacts under a single directory.
type Writer struct {
	Dir string
}

// NewWriter creates dir when missing.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %q: %w", dir, err)
	}
	return &Writer{Dir: dir}, nil
}

// WriteJSON writes value as indented JSON. Absolute names are written as is.
func (w *Writer) WriteJSON(name string, value any) (string, error) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return w.WriteBytes(name, append(payload, '\n'))
}

// WriteBytes writes data to name.
func (w *Writer) WriteBytes(name string, data []byte) (string, error) {
	path := w.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %q: %w", path, err)
	}
	return path, nil
}

func (w *Writer) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.Dir, name)
}
