package casesync

import "strings"

// Priority is a TestRail priority id.
type Priority int

// Built-in TestRail priorities.
const (
	PriorityLow      Priority = 2
	PriorityMedium   Priority = 3
	PriorityHigh     Priority = 4
	PriorityCritical Priority = 5
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "medium"
	}
}

var priorityWords = []struct {
	priority Priority
	words    []string
}{
	{PriorityCritical, []string{"critical", "smoke", "p0", "blocker", "security"}},
	{PriorityHigh, []string{"important", "main", "core", "p1", "auth"}},
	{PriorityLow, []string{"edge", "negative", "error", "p3", "optional"}},
}

// InferPriority classifies a scenario by keyword. Words match as substrings of
// the lower-cased scenario and feature text, so "authors" counts as "auth".
// The first matching tier wins.
func InferPriority(feature, scenario string) Priority {
	text := strings.ToLower(scenario + " " + feature)
	for _, tier := range priorityWords {
		for _, w := range tier.words {
			if strings.Contains(text, w) {
				return tier.priority
			}
		}
	}
	return PriorityMedium
}
