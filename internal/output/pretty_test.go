package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bgricker/karatesync/internal/archive"
	"github.com/bgricker/karatesync/internal/casesync"
	"github.com/bgricker/karatesync/internal/config"
	"github.com/bgricker/karatesync/internal/journal"
	"github.com/bgricker/karatesync/internal/pipeline"
	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/runner"
	"github.com/bgricker/karatesync/internal/testrail"
)

func TestPrettyRenderResults(t *testing.T) {
	results := []result.Result{
		{Feature: "Auth", Scenario: "Login ok", Status: result.StatusPassed, Duration: 0.123, Tags: []string{"smoke"}},
		{Feature: "Auth", Scenario: "Login bad", Status: result.StatusFailed, ErrorMessage: "status code was: 500"},
		{Feature: "Posts", Scenario: "Draft", Status: result.StatusSkipped},
	}
	summary := report.Summarize(results)

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderResults(results, summary); err != nil {
		t.Fatalf("render results: %v", err)
	}

	out := buf.String()
	if strings.Count(out, "Feature Auth") != 1 {
		t.Fatalf("expected a single Auth header, got %q", out)
	}
	for _, want := range []string{
		"✓ Login ok (123ms)",
		"tags: smoke",
		"✗ Login bad",
		"status code was: 500",
		"Feature Posts",
		"- Draft (0s)",
		"SUMMARY: 1 passed, 1 failed, 1 skipped (123ms)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestPrettyRenderProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testrail-projects.yaml")
	data := `projects:
  api:
    project_name: Public API
    project_id: 7
    suite_id: 3
    section_name: Karate
    qa_name: Dana
    qa_email: dana@example.com
  draft:
    project_name: Draft
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write projects: %v", err)
	}
	projects, err := config.LoadProjects(path)
	if err != nil {
		t.Fatalf("load projects: %v", err)
	}

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderProjects(projects); err != nil {
		t.Fatalf("render projects: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Public API", "Dana <dana@example.com>", "Karate", "Skipped without project_id: draft"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestPrettyRenderOutcome(t *testing.T) {
	outcome := pipeline.Outcome{
		Artifact:   "target/karate.json",
		Parsed:     3,
		Selected:   2,
		Summary:    report.Summary{Total: 2, Passed: 1, Failed: 1},
		Sync:       casesync.Stats{Created: 1, Updated: 1},
		RunID:      77,
		RunURL:     "https://acme.testrail.io/index.php?/runs/view/77",
		Submission: runner.Submission{Attempted: 2, Submitted: 2},
		Attached:   true,
		Archived:   &archive.Object{Location: "s3://qa/42/karate.json"},
		Report:     &report.RunReport{PassRate: 50},
		Target: &testrail.Target{
			Project: testrail.Project{ID: 1, Name: "Public API"},
			Suite:   testrail.Suite{ID: 2, Name: "Master"},
		},
	}

	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderOutcome(outcome); err != nil {
		t.Fatalf("render outcome: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"2 of 3 parsed",
		"Public API (#1) / Master (#2)",
		"1 created, 1 updated, 0 failed",
		"#77",
		"s3://qa/42/karate.json",
		"Pass rate: 50.0%",
		"Run: https://acme.testrail.io/index.php?/runs/view/77",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestPrettyRenderOutcomeNothingSelected(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewPretty(buf).RenderOutcome(pipeline.Outcome{Artifact: "k.json", Parsed: 4}); err != nil {
		t.Fatalf("render outcome: %v", err)
	}
	if got := buf.String(); got != "No results to sync in k.json (4 parsed).\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPrettyRenderRunReport(t *testing.T) {
	buf := &bytes.Buffer{}
	r := report.RunReport{RunID: 5, Name: "Nightly", Total: 1, Passed: 1, PassRate: 100}
	if err := NewPretty(buf).RenderRunReport(r); err != nil {
		t.Fatalf("render report: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "# TestRail Run Report: Nightly") {
		t.Fatalf("expected markdown heading, got %q", out)
	}
	if !strings.HasSuffix(out, "None\n") {
		t.Fatalf("expected empty failure list, got %q", out)
	}
}

func TestPrettyRenderJournal(t *testing.T) {
	buf := &bytes.Buffer{}
	entries := []journal.Entry{{
		ID:           3,
		InvocationID: "0f8c2a9e-1111-2222-3333-444455556666",
		Operation:    "add run",
		Target:       "add_run/1",
		StatusCode:   400,
		Error:        "add run: HTTP 400: Field :suite_id is not a valid test suite.",
		CreatedAt:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	if err := NewPretty(buf).RenderJournal(entries); err != nil {
		t.Fatalf("render journal: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"0f8c2a9e", "add_run/1", "400", "2024-05-01T12:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
	if strings.Contains(out, "444455556666") {
		t.Fatalf("expected shortened invocation id, got %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("line one\nline two", 60); got != "line one line two" {
		t.Fatalf("unexpected %q", got)
	}
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestPrettyRenderConnection(t *testing.T) {
	buf := &bytes.Buffer{}
	projects := []testrail.Project{{ID: 1, Name: "Public API"}, {ID: 2, Name: "Legacy", IsCompleted: true}}
	target := &testrail.Target{
		Project: testrail.Project{ID: 1, Name: "Public API"},
		Suite:   testrail.Suite{ID: 2, Name: "Master", ProjectID: 1},
	}
	if err := NewPretty(buf).RenderConnection(Connection{Server: "https://acme.testrail.io", Projects: projects, Target: target}); err != nil {
		t.Fatalf("render connection: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Connected to https://acme.testrail.io", "Public API", "Legacy", "yes", "Target: Public API (#1) / Master (#2)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestPrettyRenderResolutions(t *testing.T) {
	buf := &bytes.Buffer{}
	resolutions := []config.Resolution{
		{Key: "api", Name: "Public API", ProjectID: 1, SectionID: 99},
		{Key: "draft", Name: "Missing", Error: `project "Missing" not found`},
	}
	if err := NewPretty(buf).RenderResolutions("testrail-projects.yaml", resolutions); err != nil {
		t.Fatalf("render resolutions: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"testrail-projects.yaml", "Public API", "99", "ok", `project "Missing" not found`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}

	buf.Reset()
	if err := NewPretty(buf).RenderResolutions("p.yaml", nil); err != nil {
		t.Fatalf("render resolutions: %v", err)
	}
	if got := buf.String(); got != "No projects in p.yaml.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
