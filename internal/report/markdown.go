package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderMarkdown formats the run report for CI logs and PR comments.
func RenderMarkdown(r RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# TestRail Run Report: %s\n\n", r.Name)
	b.WriteString("## Summary\n\n")

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Run ID", fmt.Sprintf("#%d", r.RunID)},
		{"Total", r.Total},
		{"Passed", fmt.Sprintf("%d (%.1f%%)", r.Passed, r.PassRate)},
		{"Failed", r.Failed},
		{"Skipped", r.Skipped},
	})
	if r.Other > 0 {
		t.AppendRow(table.Row{"Other", r.Other})
	}
	if r.URL != "" {
		t.AppendRow(table.Row{"URL", r.URL})
	}
	b.WriteString(t.RenderMarkdown())
	b.WriteString("\n\n## Failed Tests\n\n")

	if len(r.Failures) == 0 {
		b.WriteString("None\n")
		return b.String()
	}
	for _, f := range r.Failures {
		comment := strings.TrimSpace(f.Comment)
		if comment == "" {
			comment = "N/A"
		}
		// keep one bullet per failure
		comment = strings.ReplaceAll(comment, "\n", " ")
		fmt.Fprintf(&b, "- Case #%d: %s\n", f.CaseID, comment)
	}
	return b.String()
}

// PassRate returns passed/total as a percentage, zero when total is zero.
func PassRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(passed) / float64(total) * 100
}
