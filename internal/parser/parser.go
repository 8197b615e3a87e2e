package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/result"
)

const (
	// FormatDetailed is the per-scenario shape with scenarioResults/stepResults.
	FormatDetailed = "detailed"
	// FormatElements is the cucumber-style feature/elements shape.
	FormatElements = "elements"
	// FormatSummary is the featureSummary shape with counts only.
	FormatSummary = "summary"

	unknownFeature  = "Unknown Feature"
	unknownScenario = "Unknown Scenario"
)

// shape is one known document layout: detect checks for the discriminating
// key and decode turns the document into results.
type shape struct {
	name   string
	detect func(doc any) bool
	decode func(p *Parser, doc any) []result.Result
}

var shapes = []shape{
	{name: FormatDetailed, detect: isDetailed, decode: (*Parser).decodeDetailed},
	{name: FormatElements, detect: isElements, decode: (*Parser).decodeElements},
	{name: FormatSummary, detect: isSummary, decode: (*Parser).decodeSummary},
}

// Parser normalizes Karate JSON reports into canonical results.
type Parser struct {
	logger      *zap.Logger
	feature     string
	backgrounds *BackgroundCache
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithFeatureName sets the feature name used when a detailed document carries none.
func WithFeatureName(name string) Option {
	return func(p *Parser) {
		p.feature = strings.TrimSpace(name)
	}
}

// New constructs a Parser with its own background cache.
func New(opts ...Option) *Parser {
	p := &Parser{
		logger:      zap.NewNop(),
		backgrounds: NewBackgroundCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backgrounds exposes the parser-owned background cache.
func (p *Parser) Backgrounds() *BackgroundCache {
	return p.backgrounds
}

// ParseFile reads path and parses it. Only I/O failures are returned as errors.
func (p *Parser) ParseFile(path string) ([]result.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("artifact %q not found", path)
		}
		return nil, fmt.Errorf("read artifact %q: %w", path, err)
	}
	results := p.Parse(data)
	p.logger.Info("parsed artifact", zap.String("path", path), zap.Int("results", len(results)))
	return results, nil
}

// Parse decodes raw into results. Malformed content never fails: unknown
// shapes and invalid JSON yield an empty slice and a log line.
func (p *Parser) Parse(raw []byte) []result.Result {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		p.logger.Warn("empty karate document")
		return nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		p.logger.Warn("invalid karate json", zap.Error(err))
		return nil
	}

	matched := false
	for _, s := range shapes {
		if !s.detect(doc) {
			continue
		}
		matched = true
		results := s.decode(p, doc)
		if len(results) > 0 {
			p.logger.Debug("decoded karate document", zap.String("format", s.name), zap.Int("results", len(results)))
			return results
		}
		p.logger.Debug("format produced no results, trying next", zap.String("format", s.name))
	}

	if !matched {
		p.logger.Warn("unrecognized karate document shape", zap.String("shape", describe(doc)))
	} else {
		p.logger.Warn("karate document contained no scenarios", zap.String("shape", describe(doc)))
	}
	return nil
}

// Detect reports the first shape whose discriminating key is present, or "".
func Detect(raw []byte) string {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}
	for _, s := range shapes {
		if s.detect(doc) {
			return s.name
		}
	}
	return ""
}

// normalizeKeyword trims the keyword and treats "*" as Given.
func normalizeKeyword(keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "*" {
		return "Given"
	}
	return keyword
}

func stepLine(keyword, text string) string {
	return strings.TrimSpace(keyword + " " + strings.TrimSpace(text))
}

// isAssertion reports whether a step verifies the response. This is a text
// heuristic and can misclassify.
func isAssertion(keyword, text string) bool {
	if keyword != "Then" && keyword != "And" {
		return false
	}
	return strings.Contains(text, "status") || strings.Contains(text, "match") || strings.Contains(text, "==")
}

// isPrerequisite reports whether a step calls another feature.
func isPrerequisite(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "call ") || strings.HasPrefix(t, "callonce ") ||
		strings.Contains(t, "= call ") || strings.Contains(t, "= callonce ")
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
