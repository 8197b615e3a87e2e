package parser

import (
	"fmt"
	"strings"

	"github.com/bgricker/karatesync/internal/result"
)

func isElements(doc any) bool {
	if _, ok := asList(doc); ok {
		return true
	}
	o, ok := asObject(doc)
	if !ok {
		return false
	}
	return o.has("elements") || o.has("features")
}

func elementFeatures(doc any) []object {
	if l, ok := asList(doc); ok {
		out := make([]object, 0, len(l))
		for _, item := range l {
			if m, ok := asObject(item); ok {
				out = append(out, m)
			}
		}
		return out
	}
	o, _ := asObject(doc)
	if o.has("elements") {
		return []object{o}
	}
	return o.objects("features")
}

func isScenarioElement(el object) bool {
	t := el.str("type")
	return t == "scenario" || t == "Scenario"
}

func isBackgroundElement(el object) bool {
	t := strings.ToLower(el.str("type"))
	return t == "background"
}

func (p *Parser) decodeElements(doc any) []result.Result {
	features := elementFeatures(doc)

	// prime the background cache before decoding any scenario
	for _, feature := range features {
		name := orDefault(feature.str("name"), unknownFeature)
		for _, el := range feature.objects("elements") {
			if !isBackgroundElement(el) {
				continue
			}
			var bg []string
			for _, step := range el.objects("steps") {
				bg = append(bg, stepLine(normalizeKeyword(step.str("keyword")), step.str("name")))
			}
			p.backgrounds.Put(name, bg)
		}
	}

	var results []result.Result
	for _, feature := range features {
		name := orDefault(feature.str("name"), unknownFeature)
		featureTags := feature.tags("tags")
		for _, el := range feature.objects("elements") {
			if !isScenarioElement(el) {
				continue
			}
			results = append(results, p.elementResult(name, featureTags, el))
		}
	}
	return results
}

func (p *Parser) elementResult(feature string, featureTags []string, el object) result.Result {
	steps := el.objects("steps")

	status := el.str("status")
	if status == "" {
		status = result.StatusPassed
		for _, step := range steps {
			if step.obj("result").str("status") == result.StatusFailed {
				status = result.StatusFailed
				break
			}
		}
	}
	status = result.NormalizeStatus(status)

	r := result.Result{
		Feature:  feature,
		Scenario: orDefault(el.str("name"), unknownScenario),
		Status:   status,
		Tags:     result.NormalizeTags(append(append([]string(nil), featureTags...), el.tags("tags")...)),
		Examples: outlineExamples(el),
	}

	var nanos float64
	for _, step := range steps {
		res := step.obj("result")
		nanos += res.num("duration")

		keyword := normalizeKeyword(step.str("keyword"))
		text := strings.TrimSpace(step.str("name"))
		line := stepLine(keyword, text)

		r.Steps = append(r.Steps, result.StepRecord{
			Keyword:  keyword,
			Text:     text,
			Status:   res.str("status"),
			Duration: res.num("duration") / 1e9,
			Payload:  step.obj("doc_string").str("value"),
		})

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
		if r.ErrorMessage == "" && status == result.StatusFailed && res.str("status") == result.StatusFailed {
			r.ErrorMessage = orDefault(res.str("error_message"), "Unknown error")
		}
	}
	r.Duration = nanos / 1e9

	if len(r.BackgroundSteps) == 0 {
		r.BackgroundSteps = p.backgrounds.Get(feature)
	}
	if status == result.StatusFailed && r.ErrorMessage == "" {
		r.ErrorMessage = orDefault(el.str("error_message"), "Unknown error")
	}
	return r
}

// outlineExamples zips examples[].rows[].cells into maps keyed by the header row.
func outlineExamples(el object) []map[string]string {
	var out []map[string]string
	for _, ex := range el.objects("examples") {
		rows := ex.objects("rows")
		if len(rows) < 2 {
			continue
		}
		header := cells(rows[0])
		for _, row := range rows[1:] {
			values := cells(row)
			entry := make(map[string]string, len(header))
			for i, key := range header {
				if i < len(values) {
					entry[key] = values[i]
				} else {
					entry[key] = ""
				}
			}
			out = append(out, entry)
		}
	}
	return out
}

func cells(row object) []string {
	raw := row.list("cells")
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		switch v := c.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			out = append(out, object(v).str("value"))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
