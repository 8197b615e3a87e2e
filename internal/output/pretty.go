package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/journal"
	"github.com/bgricker/karatesync/internal/pipeline"
	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/testrail"
)

// PrettyRenderer renders sync data in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

func (p *PrettyRenderer) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderResults shows parsed scenarios grouped by feature, then a summary line.
func (p *PrettyRenderer) RenderResults(results []result.Result, summary report.Summary) error {
	var current string
	var buffer bytes.Buffer

	flush := func() error {
		if buffer.Len() == 0 {
			return nil
		}
		if _, err := buffer.WriteTo(p.out); err != nil {
			return err
		}
		buffer.Reset()
		return nil
	}

	for i, res := range results {
		if i == 0 || res.Feature != current {
			if err := flush(); err != nil {
				return err
			}
			current = res.Feature
			fmt.Fprintf(&buffer, "Feature %s\n", res.Feature)
		}

		duration := formatDuration(seconds(res.Duration))
		fmt.Fprintf(&buffer, "  %s %s (%s)\n", statusGlyph(res.Status), res.Scenario, duration)
		if len(res.Tags) > 0 {
			fmt.Fprintf(&buffer, "      tags: %s\n", strings.Join(res.Tags, ", "))
		}
		if res.Status == result.StatusFailed && res.ErrorMessage != "" {
			fmt.Fprintf(&buffer, "      error:\n%s\n", indent(res.ErrorMessage, "        "))
		}
	}

	if err := flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(p.out, "SUMMARY: %d passed, %d failed, %d skipped (%s)\n", summary.Passed, summary.Failed, summary.Skipped, formatDuration(summary.Duration))
	return err
}

// RenderProjects lists the configured projects.
func (p *PrettyRenderer) RenderProjects(projects config.Projects) error {
	keys := projects.Keys()
	if len(keys) == 0 {
		_, err := fmt.Fprintln(p.out, "No projects configured.")
		return err
	}
	t := p.table()
	t.AppendHeader(table.Row{"Key", "Name", "Project", "Suite", "Section", "QA"})
	for _, key := range keys {
		proj, err := projects.Lookup(key)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{key, proj.Name, proj.ProjectID, proj.SuiteID, proj.SectionName, qaContact(proj)})
	}
	t.Render()
	if len(projects.Incomplete) > 0 {
		_, err := fmt.Fprintf(p.out, "Skipped without project_id: %s\n", strings.Join(projects.Incomplete, ", "))
		return err
	}
	return nil
}

// RenderConnection lists the TestRail projects visible to the configured user
// and, when one was checked, the configured project and suite.
func (p *PrettyRenderer) RenderConnection(c Connection) error {
	if _, err := fmt.Fprintf(p.out, "Connected to %s\n", c.Server); err != nil {
		return err
	}
	t := p.table()
	t.AppendHeader(table.Row{"ID", "Name", "Completed"})
	for _, proj := range c.Projects {
		t.AppendRow(table.Row{proj.ID, proj.Name, yesNo(proj.IsCompleted)})
	}
	t.Render()
	if c.Target != nil {
		_, err := fmt.Fprintf(p.out, "Target: %s\n", targetName(*c.Target))
		return err
	}
	return nil
}

// RenderResolutions reports the ids looked up for the projects file.
func (p *PrettyRenderer) RenderResolutions(path string, resolutions []config.Resolution) error {
	if len(resolutions) == 0 {
		_, err := fmt.Fprintf(p.out, "No projects in %s.\n", path)
		return err
	}
	t := p.table()
	t.SetTitle(path)
	t.AppendHeader(table.Row{"Key", "Name", "Project", "Section", "Status"})
	for _, r := range resolutions {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		t.AppendRow(table.Row{r.Key, r.Name, idOrDash(r.ProjectID), idOrDash(r.SectionID), status})
	}
	t.Render()
	return nil
}

// RenderOutcome reports the end state of a sync.
func (p *PrettyRenderer) RenderOutcome(o pipeline.Outcome) error {
	if o.Selected == 0 {
		_, err := fmt.Fprintf(p.out, "No results to sync in %s (%d parsed).\n", o.Artifact, o.Parsed)
		return err
	}

	t := p.table()
	t.SetTitle("Sync")
	t.AppendHeader(table.Row{"Stage", "Value"})
	t.AppendRows([]table.Row{
		{"Artifact", o.Artifact},
	})
	if o.Target != nil {
		t.AppendRow(table.Row{"Target", targetName(*o.Target)})
	}
	t.AppendRows([]table.Row{
		{"Results", fmt.Sprintf("%d of %d parsed", o.Selected, o.Parsed)},
		{"Outcomes", fmt.Sprintf("%d passed, %d failed, %d skipped", o.Summary.Passed, o.Summary.Failed, o.Summary.Skipped)},
		{"Cases", fmt.Sprintf("%d created, %d updated, %d failed", o.Sync.Created, o.Sync.Updated, o.Sync.Failed)},
	})
	if o.RunID > 0 {
		t.AppendRow(table.Row{"Run", fmt.Sprintf("#%d", o.RunID)})
		t.AppendRow(table.Row{"Submitted", fmt.Sprintf("%d of %d", o.Submission.Submitted, o.Submission.Attempted)})
		if o.Submission.Unresolved > 0 {
			t.AppendRow(table.Row{"Unresolved", o.Submission.Unresolved})
		}
		t.AppendRow(table.Row{"Attached", yesNo(o.Attached)})
		t.AppendRow(table.Row{"Closed", yesNo(o.Closed)})
	}
	if o.Archived != nil {
		t.AppendRow(table.Row{"Archived", o.Archived.Location})
	}
	if o.RunDataPath != "" {
		t.AppendRow(table.Row{"Run data", o.RunDataPath})
	}
	t.Render()

	if o.Report != nil {
		if _, err := fmt.Fprintf(p.out, "Pass rate: %.1f%%\n", o.Report.PassRate); err != nil {
			return err
		}
	}
	if o.RunURL != "" {
		if _, err := fmt.Fprintf(p.out, "Run: %s\n", o.RunURL); err != nil {
			return err
		}
	}
	return nil
}

// RenderRunReport prints the markdown form of a run report.
func (p *PrettyRenderer) RenderRunReport(r report.RunReport) error {
	md := r.Markdown
	if md == "" {
		md = report.RenderMarkdown(r)
	}
	_, err := io.WriteString(p.out, strings.TrimRight(md, "\n")+"\n")
	return err
}

// RenderJournal lists recorded registry calls.
func (p *PrettyRenderer) RenderJournal(entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.out, "Journal is empty.")
		return err
	}
	t := p.table()
	t.AppendHeader(table.Row{"ID", "When", "Invocation", "Operation", "Target", "Status", "Error"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			shortID(e.InvocationID),
			e.Operation,
			e.Target,
			statusCode(e.StatusCode),
			truncate(e.Error, 60),
		})
	}
	t.Render()
	return nil
}

func targetName(tg testrail.Target) string {
	return fmt.Sprintf("%s (#%d) / %s (#%d)", tg.Project.Name, tg.Project.ID, tg.Suite.Name, tg.Suite.ID)
}

func idOrDash(id int) string {
	if id <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", id)
}

func qaContact(p config.Project) string {
	switch {
	case p.QAName != "" && p.QAEmail != "":
		return fmt.Sprintf("%s <%s>", p.QAName, p.QAEmail)
	case p.QAEmail != "":
		return p.QAEmail
	default:
		return p.QAName
	}
}

func statusGlyph(status string) string {
	switch status {
	case result.StatusPassed:
		return "✓"
	case result.StatusFailed:
		return "✗"
	case result.StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

func statusCode(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprint(code)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
