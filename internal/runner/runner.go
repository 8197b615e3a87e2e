// Package runner opens TestRail runs for a build and posts results to them.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/buildinfo"
	"github.com/bgricker/karatesync/internal/casemap"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/testrail"
)

// DefaultRunNameTemplate names runs after the CI build.
const DefaultRunNameTemplate = `Build #{{ .BuildNumber }} - {{ .Branch }}`

// DefaultEnvironment is reported when the build does not name one.
const DefaultEnvironment = "dev"

// ErrNoCases is returned by CreateRun when there is nothing to put in the run.
var ErrNoCases = errors.New("run has no cases")

// Registry is the part of the TestRail client the runner needs.
type Registry interface {
	AddRun(ctx context.Context, projectID int, fields testrail.RunFields) (*testrail.Run, error)
	GetRun(ctx context.Context, runID int) (*testrail.Run, error)
	CloseRun(ctx context.Context, runID int) (*testrail.Run, error)
	GetTests(ctx context.Context, runID int) ([]testrail.Test, error)
	AddResults(ctx context.Context, runID int, entries []testrail.ResultEntry) ([]testrail.TestResult, error)
	GetResultsForRun(ctx context.Context, runID int) ([]testrail.TestResult, error)
	AddAttachmentToRun(ctx context.Context, runID int, path, name string) (*testrail.Attachment, error)
}

// Options configure the runner.
type Options struct {
	// BaseURL is the TestRail server root used for run links.
	BaseURL string
	// RunNameTemplate is a text/template over the build info with sprig
	// functions and a .Now field.
	RunNameTemplate string
	Logger          *zap.Logger
	Now             func() time.Time
}

// Runner drives the run lifecycle: create, submit, attach, report, close.
type Runner struct {
	registry Registry
	opts     Options
	name     *template.Template
}

// New creates a runner with the supplied options.
func New(registry Registry, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.RunNameTemplate) == "" {
		opts.RunNameTemplate = DefaultRunNameTemplate
	}
	opts.BaseURL = strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")

	tmpl, err := template.New("run-name").Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(opts.RunNameTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse run name template: %w", err)
	}
	return &Runner{registry: registry, opts: opts, name: tmpl}, nil
}

type runNameData struct {
	buildinfo.Info
	Now time.Time
}

// RunName renders the run name for build.
func (r *Runner) RunName(build buildinfo.Info) (string, error) {
	var buf bytes.Buffer
	if err := r.name.Execute(&buf, runNameData{Info: build, Now: r.opts.Now()}); err != nil {
		return "", fmt.Errorf("render run name: %w", err)
	}
	name := strings.TrimSpace(buf.String())
	if name == "" {
		name = fmt.Sprintf("Build #%s - %s", build.BuildNumber, build.Branch)
	}
	return name, nil
}

// CreateRun opens a run restricted to caseIDs and returns its id.
func (r *Runner) CreateRun(ctx context.Context, projectID, suiteID int, build buildinfo.Info, caseIDs []int) (int, error) {
	if len(caseIDs) == 0 {
		return 0, ErrNoCases
	}
	name, err := r.RunName(build)
	if err != nil {
		return 0, err
	}
	env := build.Environment
	if env == "" || env == buildinfo.Unknown {
		env = DefaultEnvironment
	}

	fields := testrail.RunFields{
		SuiteID:     suiteID,
		Name:        name,
		Description: runDescription(build, env),
		IncludeAll:  false,
		CaseIDs:     append([]int(nil), caseIDs...),
		BuildNumber: build.BuildNumber,
		Branch:      build.Branch,
		CommitSHA:   build.CommitSHA,
		Environment: env,
		JiraIssue:   build.JiraIssue,
	}
	run, err := r.registry.AddRun(ctx, projectID, fields)
	if err != nil {
		return 0, fmt.Errorf("create run: %w", err)
	}
	r.opts.Logger.Info("created run", zap.Int("run_id", run.ID), zap.String("name", name), zap.Int("cases", len(caseIDs)), zap.String("url", r.RunURL(run.ID, run.URL)))
	return run.ID, nil
}

func runDescription(build buildinfo.Info, env string) string {
	lines := []string{
		"Build: #" + build.BuildNumber,
		"Branch: " + build.Branch,
		"Commit: " + build.CommitSHA,
	}
	if build.CommitMessage != "" {
		lines = append(lines, "Message: "+build.CommitMessage)
	}
	if build.JiraIssue != "" {
		lines = append(lines, "Jira: "+build.JiraIssue)
	}
	lines = append(lines, "Environment: "+env)
	return strings.Join(lines, "\n")
}

// StatusCode maps a result status to a TestRail status id. Anything that is
// neither passed nor failed is reported as untested.
func StatusCode(status string) int {
	switch status {
	case result.StatusPassed:
		return testrail.StatusPassed
	case result.StatusFailed:
		return testrail.StatusFailed
	default:
		return testrail.StatusUntested
	}
}

// Submission describes one add_results batch.
type Submission struct {
	Attempted  int                    `json:"attempted"`
	Submitted  int                    `json:"submitted"`
	Unresolved int                    `json:"unresolved"`
	Entries    []testrail.ResultEntry `json:"-"`
}

// SubmitResults posts one result per resolvable Result in a single batch.
// Results are resolved automation id → case id → test id; unresolved ones are
// skipped. It reports false when the run's tests cannot be listed, when
// nothing resolves, or when the batch is rejected.
func (r *Runner) SubmitResults(ctx context.Context, runID int, results []result.Result, ids *casemap.Map) (Submission, bool) {
	sub := Submission{Attempted: len(results)}
	log := r.opts.Logger.With(zap.Int("run_id", runID))

	tests, err := r.registry.GetTests(ctx, runID)
	if err != nil {
		log.Error("list run tests failed", zap.Error(err))
		return sub, false
	}
	testByCase := make(map[int]int, len(tests))
	for _, t := range tests {
		if _, ok := testByCase[t.CaseID]; !ok {
			testByCase[t.CaseID] = t.ID
		}
	}

	for _, res := range results {
		id := res.AutomationID()
		caseID, ok := ids.Get(id)
		if !ok {
			sub.Unresolved++
			log.Warn("case id not found, skipping result", zap.String("automation_id", id))
			continue
		}
		testID, ok := testByCase[caseID]
		if !ok {
			sub.Unresolved++
			log.Warn("test id not found, skipping result", zap.String("automation_id", id), zap.Int("case_id", caseID))
			continue
		}
		sub.Entries = append(sub.Entries, testrail.ResultEntry{
			TestID:   testID,
			StatusID: StatusCode(res.Status),
			Comment:  comment(res),
			Elapsed:  elapsed(res.Duration),
		})
	}

	if len(sub.Entries) == 0 {
		log.Warn("no results to submit", zap.Int("attempted", sub.Attempted), zap.Int("unresolved", sub.Unresolved))
		return sub, false
	}
	if _, err := r.registry.AddResults(ctx, runID, sub.Entries); err != nil {
		log.Error("submit results failed", zap.Int("results", len(sub.Entries)), zap.Error(err))
		return sub, false
	}
	sub.Submitted = len(sub.Entries)
	log.Info("submitted results", zap.Int("attempted", sub.Attempted), zap.Int("submitted", sub.Submitted), zap.Int("unresolved", sub.Unresolved))
	return sub, true
}

func comment(res result.Result) string {
	switch res.Status {
	case result.StatusPassed:
		return "Test passed"
	case result.StatusSkipped:
		return "Test skipped"
	}
	if msg := strings.TrimSpace(res.ErrorMessage); msg != "" {
		return msg
	}
	return "Test failed"
}

// elapsed formats seconds as TestRail's timespan. TestRail rejects "0s", so
// durations that round to zero are omitted.
func elapsed(seconds float64) string {
	if seconds <= 0.005 {
		return ""
	}
	return fmt.Sprintf("%.2fs", seconds)
}

// AttachArtifact uploads the raw artifact at path to the run.
func (r *Runner) AttachArtifact(ctx context.Context, runID int, path string) error {
	a, err := r.registry.AddAttachmentToRun(ctx, runID, path, "")
	if err != nil {
		return fmt.Errorf("attach artifact: %w", err)
	}
	r.opts.Logger.Info("attached artifact", zap.Int("run_id", runID), zap.String("path", path), zap.String("attachment_id", string(a.ID)))
	return nil
}

// CloseRun closes the run.
func (r *Runner) CloseRun(ctx context.Context, runID int) error {
	if _, err := r.registry.CloseRun(ctx, runID); err != nil {
		return fmt.Errorf("close run %d: %w", runID, err)
	}
	r.opts.Logger.Info("closed run", zap.Int("run_id", runID))
	return nil
}

// RunURL returns the browser URL of a run, preferring the configured base URL
// over the one TestRail reported.
func (r *Runner) RunURL(runID int, reported string) string {
	if r.opts.BaseURL == "" {
		return reported
	}
	return fmt.Sprintf("%s/index.php?/runs/view/%d", r.opts.BaseURL, runID)
}
