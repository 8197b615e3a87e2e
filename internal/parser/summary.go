package parser

import (
	"fmt"

	"github.com/bgricker/karatesync/internal/result"
)

func isSummary(doc any) bool {
	o, ok := asObject(doc)
	if !ok {
		return false
	}
	_, ok = asList(o["featureSummary"])
	return ok
}

// decodeSummary synthesizes one result per feature. Feature and scenario are
// equal, which marks the result as summary mode.
func (p *Parser) decodeSummary(doc any) []result.Result {
	o, _ := asObject(doc)
	var results []result.Result
	for _, fs := range o.objects("featureSummary") {
		name := fs.str("name")
		if name == "" {
			name = fs.str("packageQualifiedName")
		}
		if name == "" {
			name = fs.str("relativePath")
		}
		name = orDefault(name, unknownFeature)

		failedCount := int(fs.num("failedCount"))
		r := result.Result{
			Feature:  name,
			Scenario: name,
			Status:   result.StatusPassed,
			Duration: fs.num("durationMillis") / 1000,
		}
		if fs.boolean("failed") || failedCount > 0 {
			r.Status = result.StatusFailed
			total := int(fs.num("scenarioCount"))
			if total == 0 {
				total = failedCount + int(fs.num("passedCount"))
			}
			r.ErrorMessage = fmt.Sprintf("%d of %d scenarios failed", failedCount, total)
		}
		results = append(results, r)
	}
	return results
}
