package parser

import (
	"path/filepath"
	"strings"

	"github.com/bgricker/karatesync/internal/result"
)

func isDetailed(doc any) bool {
	o, ok := asObject(doc)
	if !ok {
		return false
	}
	if _, ok := asList(o["scenarioResults"]); ok {
		return true
	}
	_, ok = asList(o["allScenarios"])
	return ok
}

// detailedScenarios yields each scenario with the feature name resolved.
func (p *Parser) detailedScenarios(doc object) []featureScenario {
	docFeature := doc.str("name")
	if docFeature == "" {
		docFeature = doc.str("featureName")
	}
	if docFeature == "" {
		if rel := doc.str("relativePath"); rel != "" {
			docFeature = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		}
	}
	if docFeature == "" {
		docFeature = orDefault(p.feature, unknownFeature)
	}

	var out []featureScenario
	for _, key := range []string{"scenarioResults", "allScenarios"} {
		for _, sc := range doc.objects(key) {
			feature := sc.str("featureName")
			if feature == "" {
				feature = docFeature
			}
			out = append(out, featureScenario{feature: feature, scenario: sc})
		}
	}
	return out
}

type featureScenario struct {
	feature  string
	scenario object
}

func (p *Parser) decodeDetailed(doc any) []result.Result {
	o, _ := asObject(doc)
	scenarios := p.detailedScenarios(o)

	// prime the background cache before decoding any scenario
	for _, fs := range scenarios {
		var bg []string
		for _, sr := range fs.scenario.objects("stepResults") {
			step := sr.obj("step")
			if step.boolean("background") {
				bg = append(bg, stepLine(normalizeKeyword(step.str("prefix")), step.str("text")))
			}
		}
		p.backgrounds.Put(fs.feature, bg)
	}

	results := make([]result.Result, 0, len(scenarios))
	for _, fs := range scenarios {
		results = append(results, p.detailedResult(fs.feature, fs.scenario))
	}
	return results
}

func (p *Parser) detailedResult(feature string, sc object) result.Result {
	status := result.StatusPassed
	if sc.boolean("failed") {
		status = result.StatusFailed
	} else if sc.boolean("skipped") || sc.boolean("ignored") {
		status = result.StatusSkipped
	}

	r := result.Result{
		Feature:  feature,
		Scenario: orDefault(sc.str("name"), unknownScenario),
		Status:   status,
		Duration: sc.num("durationMillis") / 1000,
		Tags:     result.NormalizeTags(sc.tags("tags")),
	}

	var firstStepError string
	for _, sr := range sc.objects("stepResults") {
		step := sr.obj("step")
		res := sr.obj("result")

		keyword := normalizeKeyword(step.str("prefix"))
		text := strings.TrimSpace(step.str("text"))
		line := stepLine(keyword, text)

		duration := res.num("millis") / 1000
		if duration == 0 && res.has("nanos") {
			duration = res.num("nanos") / 1e9
		}
		record := result.StepRecord{
			Keyword:  keyword,
			Text:     text,
			Status:   res.str("status"),
			Duration: duration,
			Payload:  step.str("docString"),
		}
		r.Steps = append(r.Steps, record)

		if step.boolean("background") {
			r.BackgroundSteps = append(r.BackgroundSteps, line)
		} else if line != "" {
			r.GherkinSteps = append(r.GherkinSteps, line)
		}
		if isAssertion(keyword, text) {
			r.ExpectedAssertions = append(r.ExpectedAssertions, line)
		}
		if isPrerequisite(text) {
			r.Prerequisites = append(r.Prerequisites, line)
		}
		if firstStepError == "" && (res.str("status") == result.StatusFailed || res.str("errorMessage") != "") {
			firstStepError = res.str("errorMessage")
		}
	}

	if len(r.BackgroundSteps) == 0 {
		r.BackgroundSteps = p.backgrounds.Get(feature)
	}

	if status == result.StatusFailed {
		r.ErrorMessage = sc.str("error")
		if r.ErrorMessage == "" {
			r.ErrorMessage = sc.str("errorMessage")
		}
		if r.ErrorMessage == "" {
			r.ErrorMessage = firstStepError
		}
	}
	return r
}
