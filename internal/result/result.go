package result

import (
	"regexp"
	"sort"
	"strings"
)

// Status values a Result may carry.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Result is the canonical record of one executed scenario.
type Result struct {
	Feature            string              `json:"feature"`
	Scenario           string              `json:"scenario"`
	Status             string              `json:"status"`
	Duration           float64             `json:"duration"`
	ErrorMessage       string              `json:"error_message,omitempty"`
	Steps              []StepRecord        `json:"steps,omitempty"`
	GherkinSteps       []string            `json:"gherkin_steps,omitempty"`
	BackgroundSteps    []string            `json:"background_steps,omitempty"`
	Prerequisites      []string            `json:"prerequisites,omitempty"`
	ExpectedAssertions []string            `json:"expected_assertions,omitempty"`
	Examples           []map[string]string `json:"examples,omitempty"`
	Tags               []string            `json:"tags,omitempty"`
}

// StepRecord captures a single executed step for diagnostics.
type StepRecord struct {
	Keyword  string  `json:"keyword"`
	Text     string  `json:"text"`
	Status   string  `json:"status"`
	Duration float64 `json:"duration"`
	Payload  string  `json:"payload,omitempty"`
}

var outlineSuffix = regexp.MustCompile(`\.\d+(\.\d+)*$`)

// CleanScenario removes the outline index suffix Karate appends to scenario names.
func CleanScenario(name string) string {
	name = strings.TrimSpace(name)
	cleaned := strings.TrimSpace(outlineSuffix.ReplaceAllString(name, ""))
	if cleaned == "" {
		return name
	}
	return cleaned
}

// SummaryMode reports whether the result was synthesized from feature-level counts.
func (r Result) SummaryMode() bool {
	return r.Feature == r.Scenario
}

// AutomationID returns the stable key used to upsert the case remotely.
func (r Result) AutomationID() string {
	if r.SummaryMode() {
		return r.Feature
	}
	return r.Feature + "." + CleanScenario(r.Scenario)
}

// Title returns the case title shown in the registry.
func (r Result) Title() string {
	if r.SummaryMode() {
		return r.Feature
	}
	return CleanScenario(r.Scenario)
}

// NormalizeStatus folds arbitrary status strings into the three known values.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPassed:
		return StatusPassed
	case StatusSkipped:
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// NormalizeTags strips leading @, drops blanks and returns a sorted unique set.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "@")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
