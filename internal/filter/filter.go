package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bgricker/karatesync/internal/result"
)

// Pattern represents a compiled filter condition supporting substring and regex matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values. A pattern wrapped
// in slashes is a regular expression; anything else is a case-insensitive
// substring.
func Compile(patterns []string) ([]Pattern, error) {
	compiled := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			compiled = append(compiled, Pattern{raw: raw, regex: re})
			continue
		}
		compiled = append(compiled, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return compiled, nil
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Results keeps results matching any only pattern (when given) and drops
// those matching any skip pattern. A result matches on its automation id,
// feature or any tag.
func Results(results []result.Result, only, skip []Pattern) []result.Result {
	if len(results) == 0 {
		return nil
	}
	kept := make([]result.Result, 0, len(results))
	for _, r := range results {
		if len(only) > 0 && !matchesResult(r, only) {
			continue
		}
		if len(skip) > 0 && matchesResult(r, skip) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func matchesResult(r result.Result, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(r.AutomationID()) || pattern.Match(r.Feature) {
			return true
		}
		for _, tag := range r.Tags {
			if pattern.Match(tag) || pattern.Match("@"+tag) {
				return true
			}
		}
	}
	return false
}
