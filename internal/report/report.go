package report

import (
	"time"

	"github.com/bgricker/karatesync/internal/result"
)

// Summary aggregates parsed scenario outcomes.
type Summary struct {
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
}

// Summarize counts results by status and totals their duration.
func Summarize(results []result.Result) Summary {
	var s Summary
	var seconds float64
	for _, r := range results {
		s.Total++
		switch r.Status {
		case result.StatusPassed:
			s.Passed++
		case result.StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
		seconds += r.Duration
	}
	s.Duration = time.Duration(seconds * float64(time.Second))
	s.DurationMS = s.Duration.Milliseconds()
	return s
}

// RunReport is the read-back view of a registry run.
type RunReport struct {
	RunID    int       `json:"run_id"`
	Name     string    `json:"name"`
	URL      string    `json:"url"`
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Other    int       `json:"other"`
	PassRate float64   `json:"pass_rate"`
	Failures []Failure `json:"failures"`
	Markdown string    `json:"markdown"`
}

// Failure lists a failed case with the comment recorded against it.
type Failure struct {
	CaseID  int    `json:"case_id"`
	TestID  int    `json:"test_id"`
	Comment string `json:"comment"`
}
