package casesync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bgricker/karatesync/internal/result"
)

func TestInferPriority(t *testing.T) {
	tests := []struct {
		feature  string
		scenario string
		want     Priority
	}{
		{"Checkout", "smoke purchase", PriorityCritical},
		{"Security", "token rotation", PriorityCritical},
		{"Auth", "login ok", PriorityHigh},
		{"Orders", "core flow", PriorityHigh},
		{"Orders", "negative quantity", PriorityLow},
		{"Orders", "error on empty cart", PriorityLow},
		{"Orders", "list orders", PriorityMedium},
		{"Auth", "critical lockout", PriorityCritical},
		{"Users", "P0 outage", PriorityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.feature+"/"+tt.scenario, func(t *testing.T) {
			got := InferPriority(tt.feature, tt.scenario)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, InferPriority(tt.feature, tt.scenario))
		})
	}
	assert.Equal(t, "critical", PriorityCritical.String())
	assert.Equal(t, "medium", Priority(0).String())
}

func TestPreconditions(t *testing.T) {
	assert.Equal(t, "1. Given the API is accessible\n2. And the test environment is configured", Preconditions(result.Result{}))
	assert.Equal(t, "1. Given url baseUrl\n2. not available", Preconditions(result.Result{BackgroundSteps: []string{"Given url baseUrl", " "}}))
}

func TestSteps(t *testing.T) {
	assert.Equal(t, "1. Prepare test data\n2. Send API request\n3. Verify HTTP response status\n4. Validate response body", Steps(result.Result{}))
	assert.Equal(t, "1. Given path 'posts', 1\n2. When method get\n3. Then status 200", Steps(postsResult()))
}

func TestExpectedResult(t *testing.T) {
	passed := ExpectedResult(postsResult())
	assert.Equal(t, "Test execution successful\n\nExpected Assertions:\n  • Then status 200\n\nAutomation ID: Posts.Get by id\nFeature: Posts\nDuration: 0.42s", passed)

	failed := ExpectedResult(result.Result{Feature: "Posts", Scenario: "Create", Status: result.StatusFailed})
	assert.Equal(t, "Test failed\n\nExpected Assertions: not available\n\nError Details: not available\n\nAutomation ID: Posts.Create\nFeature: Posts\nDuration: not available", failed)

	skipped := ExpectedResult(result.Result{Feature: "F", Scenario: "S", Status: result.StatusSkipped, ErrorMessage: "ignored"})
	assert.True(t, strings.HasPrefix(skipped, "Test skipped\n"))
	assert.NotContains(t, skipped, "Error Details")
}

func TestDescriptionEscapesText(t *testing.T) {
	r := result.Result{
		Feature:      "Posts",
		Scenario:     "<script>alert(1)</script>",
		Status:       result.StatusFailed,
		ErrorMessage: "expected <b>",
		Tags:         []string{"smoke"},
	}

	got := Description(r)
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "<pre>expected &lt;b&gt;</pre>")
	assert.Contains(t, got, "<li>not available</li>")
	assert.Contains(t, got, "<td>@smoke</td>")
}

func TestDescriptionOmitsErrorWhenPassed(t *testing.T) {
	got := Description(postsResult())
	assert.NotContains(t, got, "<h4>Error</h4>")
	assert.Contains(t, got, "<td>Posts.Get by id</td>")
	assert.Contains(t, got, "Duration:</strong> 0.42s")
}

func TestDescriptionRendersPrerequisitesAndExamples(t *testing.T) {
	r := postsResult()
	r.Prerequisites = []string{"Given def token = call login"}
	r.Examples = []map[string]string{
		{"qty": "2", "item": "apple"},
		{"item": "<pear>"},
	}

	got := Description(r)
	assert.Contains(t, got, "<h4>Prerequisites</h4>\n<ul>\n<li>Given def token = call login</li>\n</ul>")
	assert.Contains(t, got, "<h4>Examples</h4>")
	assert.Contains(t, got, "<tr><th>item</th><th>qty</th></tr>")
	assert.Contains(t, got, "<tr><td>apple</td><td>2</td></tr>")
	assert.Contains(t, got, "<tr><td>&lt;pear&gt;</td><td></td></tr>")

	plain := Description(postsResult())
	assert.NotContains(t, plain, "Prerequisites")
	assert.NotContains(t, plain, "Examples")
	assert.Contains(t, plain, "</ul>\n<h4>Steps</h4>")
}

func TestCaseFields(t *testing.T) {
	f := CaseFields(postsResult())
	assert.Equal(t, "Get by id", f.Title)
	assert.Equal(t, "Posts.Get by id", f.AutomationID)
	assert.Equal(t, int(PriorityMedium), f.PriorityID)
	assert.Equal(t, 1, f.IsAutomated)
	assert.Equal(t, "passed", f.StatusActual)
	assert.Equal(t, "Posts", f.Feature)
}
