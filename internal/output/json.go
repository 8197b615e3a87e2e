package output

import (
	"encoding/json"
	"io"

	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/testrail"
)

// JSONRenderer emits structured sync data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Report captures the JSON output of the parse command.
type Report struct {
	Artifact string          `json:"artifact"`
	Results  []result.Result `json:"results"`
	Summary  report.Summary  `json:"summary"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Connection captures the output of the check command.
type Connection struct {
	Server   string             `json:"server"`
	Projects []testrail.Project `json:"projects"`
	Target   *testrail.Target   `json:"target,omitempty"`
}

// Render encodes v as indented JSON.
func (j *JSONRenderer) Render(v any) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
