package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Combine merges per-feature Karate reports into a single document of the form
// {"allScenarios": [...]} where every scenario carries its featureName.
// Unreadable or malformed reports are skipped with a warning.
func (p *Parser) Combine(paths []string) ([]byte, int, error) {
	all := make([]any, 0)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("skipping unreadable report", zap.String("path", path), zap.Error(err))
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			p.logger.Warn("skipping malformed report", zap.String("path", path), zap.Error(err))
			continue
		}
		o := object(doc)
		feature := o.str("name")
		if feature == "" {
			feature = strings.TrimSuffix(filepath.Base(path), ".karate-json.txt")
		}
		scenarios := o.objects("scenarioResults")
		for _, sc := range scenarios {
			sc["featureName"] = feature
			all = append(all, map[string]any(sc))
		}
		p.logger.Info("combined feature report", zap.String("path", path), zap.String("feature", feature), zap.Int("scenarios", len(scenarios)))
	}

	out, err := json.Marshal(map[string]any{"allScenarios": all})
	if err != nil {
		return nil, 0, fmt.Errorf("encode combined report: %w", err)
	}
	return out, len(all), nil
}
