package casesync

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"sort"
	"strings"

	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/testrail"
)

// NotAvailable replaces any text the artifact did not provide.
const NotAvailable = "not available"

var (
	defaultPreconditions = []string{
		"Given the API is accessible",
		"And the test environment is configured",
	}
	defaultSteps = []string{
		"Prepare test data",
		"Send API request",
		"Verify HTTP response status",
		"Validate response body",
	}
)

// CaseFields builds the full update/create payload for r. Every field is
// rebuilt so a sync overwrites whatever the case held before.
func CaseFields(r result.Result) testrail.CaseFields {
	return testrail.CaseFields{
		Title:         r.Title(),
		AutomationID:  r.AutomationID(),
		Description:   Description(r),
		Preconditions: Preconditions(r),
		Steps:         Steps(r),
		Expected:      ExpectedResult(r),
		PriorityID:    int(InferPriority(r.Feature, r.Scenario)),
		Feature:       r.Feature,
		IsAutomated:   1,
		StatusActual:  r.Status,
	}
}

// Preconditions numbers the background steps, or a generic two-line default.
func Preconditions(r result.Result) string {
	lines := r.BackgroundSteps
	if len(lines) == 0 {
		lines = defaultPreconditions
	}
	return numbered(lines)
}

// Steps numbers the scenario steps, or a generic four-step default.
func Steps(r result.Result) string {
	lines := r.GherkinSteps
	if len(lines) == 0 {
		lines = defaultSteps
	}
	return numbered(lines)
}

// ExpectedResult renders the status banner, the assertions, the error block
// for failures and a metadata footer.
func ExpectedResult(r result.Result) string {
	var b strings.Builder
	switch r.Status {
	case result.StatusPassed:
		b.WriteString("Test execution successful")
	case result.StatusSkipped:
		b.WriteString("Test skipped")
	default:
		b.WriteString("Test failed")
	}
	b.WriteString("\n\n")

	if len(r.ExpectedAssertions) == 0 {
		b.WriteString("Expected Assertions: " + NotAvailable + "\n")
	} else {
		b.WriteString("Expected Assertions:\n")
		for _, a := range r.ExpectedAssertions {
			b.WriteString("  • " + orNotAvailable(a) + "\n")
		}
	}

	if r.Status == result.StatusFailed {
		b.WriteString("\nError Details: " + orNotAvailable(r.ErrorMessage) + "\n")
	}

	fmt.Fprintf(&b, "\nAutomation ID: %s\nFeature: %s\nDuration: %s", orNotAvailable(r.AutomationID()), orNotAvailable(r.Feature), formatDuration(r.Duration))
	return b.String()
}

var descriptionTmpl = template.Must(template.New("description").Parse(`<h3>{{.Feature}}</h3>
<p>{{.Scenario}}</p>
<p><strong>Status:</strong> {{.Status}} | <strong>Duration:</strong> {{.Duration}}</p>
<h4>Preconditions</h4>
<ul>
{{- range .Preconditions}}
<li>{{.}}</li>
{{- else}}
<li>` + NotAvailable + `</li>
{{- end}}
</ul>
{{- if .Prerequisites}}
<h4>Prerequisites</h4>
<ul>
{{- range .Prerequisites}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
<h4>Steps</h4>
<ol>
{{- range .Steps}}
<li>{{.}}</li>
{{- else}}
<li>` + NotAvailable + `</li>
{{- end}}
</ol>
<h4>Expected Result</h4>
<ul>
{{- range .Assertions}}
<li>{{.}}</li>
{{- else}}
<li>` + NotAvailable + `</li>
{{- end}}
</ul>
{{- if .ExampleRows}}
<h4>Examples</h4>
<table>
<tr>{{range .ExampleColumns}}<th>{{.}}</th>{{end}}</tr>
{{- range .ExampleRows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</table>
{{- end}}
{{- if .Failed}}
<h4>Error</h4>
<pre>{{.Error}}</pre>
{{- end}}
<h4>Automation</h4>
<table>
<tr><td>Automation ID</td><td>{{.AutomationID}}</td></tr>
<tr><td>Framework</td><td>Karate DSL</td></tr>
<tr><td>Tags</td><td>{{.Tags}}</td></tr>
</table>
`))

type descriptionData struct {
	Feature        string
	Scenario       string
	Status         string
	Duration       string
	Preconditions  []string
	Prerequisites  []string
	Steps          []string
	Assertions     []string
	ExampleColumns []string
	ExampleRows    [][]string
	Failed         bool
	Error          string
	AutomationID   string
	Tags           string
}

// Description renders the HTML case description. All artifact text is
// escaped.
func Description(r result.Result) string {
	tags := NotAvailable
	if len(r.Tags) > 0 {
		tags = "@" + strings.Join(r.Tags, " @")
	}
	columns, rows := exampleTable(r.Examples)
	data := descriptionData{
		Feature:        orNotAvailable(r.Feature),
		Scenario:       orNotAvailable(r.Scenario),
		Status:         orNotAvailable(r.Status),
		Duration:       formatDuration(r.Duration),
		Preconditions:  placeholders(r.BackgroundSteps),
		Prerequisites:  placeholders(r.Prerequisites),
		Steps:          placeholders(r.GherkinSteps),
		Assertions:     placeholders(r.ExpectedAssertions),
		ExampleColumns: columns,
		ExampleRows:    rows,
		Failed:         r.Status == result.StatusFailed,
		Error:          orNotAvailable(r.ErrorMessage),
		AutomationID:   orNotAvailable(r.AutomationID()),
		Tags:           tags,
	}
	var buf bytes.Buffer
	if err := descriptionTmpl.Execute(&buf, data); err != nil {
		return "<p>" + html.EscapeString(data.Feature+" / "+data.Scenario) + "</p>"
	}
	return buf.String()
}

// exampleTable flattens outline example rows into sorted columns. Keys a row
// lacks render as empty cells.
func exampleTable(examples []map[string]string) ([]string, [][]string) {
	if len(examples) == 0 {
		return nil, nil
	}
	seen := map[string]struct{}{}
	var columns []string
	for _, row := range examples {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	if len(columns) == 0 {
		return nil, nil
	}
	sort.Strings(columns)
	rows := make([][]string, len(examples))
	for i, row := range examples {
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = row[c]
		}
		rows[i] = cells
	}
	return columns, rows
}

func numbered(lines []string) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%d. %s", i+1, orNotAvailable(l))
	}
	return strings.Join(out, "\n")
}

func placeholders(lines []string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = orNotAvailable(l)
	}
	return out
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%.2fs", seconds)
}
