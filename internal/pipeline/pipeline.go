// Package pipeline runs one end-to-end sync of a Karate artifact to TestRail.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/archive"
	"github.com/bgricker/karatesync/internal/buildinfo"
	"github.com/bgricker/karatesync/internal/casemap"
	"github.com/bgricker/karatesync/internal/casesync"
	"github.com/bgricker/karatesync/internal/filter"
	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/result"
	"github.com/bgricker/karatesync/internal/runner"
	"github.com/bgricker/karatesync/internal/testrail"
)

// ErrNoCases is returned when sync resolved no case, so no run can be opened.
var ErrNoCases = errors.New("no cases resolved, nothing to run")

// Parser reads an artifact into results.
type Parser interface {
	ParseFile(path string) ([]result.Result, error)
}

// Registry is checked before anything is written to TestRail.
type Registry interface {
	CheckConnection(ctx context.Context) ([]testrail.Project, error)
	CheckTarget(ctx context.Context, projectID, suiteID int) (testrail.Target, error)
}

// Syncer reconciles results with TestRail cases.
type Syncer interface {
	Sync(ctx context.Context, results []result.Result) (*casemap.Map, casesync.Stats)
}

// Runner manages the TestRail run.
type Runner interface {
	CreateRun(ctx context.Context, projectID, suiteID int, build buildinfo.Info, caseIDs []int) (int, error)
	SubmitResults(ctx context.Context, runID int, results []result.Result, ids *casemap.Map) (runner.Submission, bool)
	AttachArtifact(ctx context.Context, runID int, path string) error
	GenerateReport(ctx context.Context, runID int) (report.RunReport, error)
	CloseRun(ctx context.Context, runID int) error
	RunURL(runID int, reported string) string
}

// Archiver stores the raw artifact.
type Archiver interface {
	Key(build, invocationID, localPath string) string
	Upload(ctx context.Context, key, localPath string) (archive.Object, error)
}

// Writer persists the run hand-off document.
type Writer interface {
	WriteJSON(name string, value any) (string, error)
}

// Metrics receives per-stage observations.
type Metrics interface {
	ObserveResult(status string)
	ObserveCases(action string, n int)
	ObserveSubmission(outcome string, n int)
	ObserveStage(stage string, elapsed time.Duration)
}

// Pipeline wires the stages. Archive, Writer and Metrics are optional.
type Pipeline struct {
	Parser   Parser
	Registry Registry
	Syncer   Syncer
	Runner   Runner
	Archive  Archiver
	Writer   Writer
	Metrics  Metrics
	Logger   *zap.Logger
	Now      func() time.Time
}

// Input describes one invocation.
type Input struct {
	InvocationID string
	ArtifactPath string
	ProjectID    int
	SuiteID      int
	Build        buildinfo.Info
	Only         []filter.Pattern
	Skip         []filter.Pattern
	Attach       bool
	CloseRun     bool
	RunDataFile  string
}

// Outcome is everything a sync produced. It is returned alongside errors so
// callers can render partial progress.
type Outcome struct {
	InvocationID string             `json:"invocation_id"`
	Artifact     string             `json:"artifact"`
	Parsed       int                `json:"parsed"`
	Selected     int                `json:"selected"`
	Summary      report.Summary     `json:"summary"`
	Target       *testrail.Target   `json:"target,omitempty"`
	Results      []result.Result    `json:"-"`
	Sync         casesync.Stats     `json:"sync"`
	CaseMap      *casemap.Map       `json:"case_map"`
	RunID        int                `json:"run_id,omitempty"`
	RunURL       string             `json:"run_url,omitempty"`
	Submission   runner.Submission  `json:"submission"`
	SubmitFailed bool               `json:"submit_failed"`
	Attached     bool               `json:"attached"`
	Archived     *archive.Object    `json:"archived,omitempty"`
	Report       *report.RunReport  `json:"report,omitempty"`
	Closed       bool               `json:"closed"`
	RunDataPath  string             `json:"run_data_path,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
	Stages       map[string]float64 `json:"stage_seconds,omitempty"`
}

// RunData is the hand-off document written for later CI steps.
type RunData struct {
	InvocationID string            `json:"invocation_id"`
	RunID        int               `json:"run_id"`
	CaseMap      *casemap.Map      `json:"case_map"`
	Report       *report.RunReport `json:"report"`
	Summary      report.Summary    `json:"summary"`
	Submission   runner.Submission `json:"submission"`
	Build        buildinfo.Info    `json:"build"`
}

// Run executes the stages in order. Parsing nothing is a successful no-op.
// A failed connection check, an unknown project or suite, an empty case map or a failed run creation stop
// the pipeline with an error; later stages only add warnings.
func (p *Pipeline) Run(ctx context.Context, in Input) (Outcome, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("invocation_id", in.InvocationID))
	now := p.Now
	if now == nil {
		now = time.Now
	}

	out := Outcome{
		InvocationID: in.InvocationID,
		Artifact:     in.ArtifactPath,
		CaseMap:      casemap.New(),
		Stages:       map[string]float64{},
	}
	stage := func(name string, start time.Time) {
		elapsed := now().Sub(start)
		out.Stages[name] = elapsed.Seconds()
		if p.Metrics != nil {
			p.Metrics.ObserveStage(name, elapsed)
		}
	}
	warn := func(msg string, err error) {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", msg, err))
		logger.Warn(msg, zap.Error(err))
	}

	// parse
	start := now()
	results, err := p.Parser.ParseFile(in.ArtifactPath)
	stage("parse", start)
	if err != nil {
		return out, fmt.Errorf("parse artifact: %w", err)
	}
	out.Parsed = len(results)
	logger.Info("parsed artifact", zap.String("path", in.ArtifactPath), zap.Int("attempted", 1), zap.Int("results", len(results)))

	results = filter.Results(results, in.Only, in.Skip)
	out.Selected = len(results)
	out.Results = results
	out.Summary = report.Summarize(results)
	if p.Metrics != nil {
		for _, r := range results {
			p.Metrics.ObserveResult(r.Status)
		}
	}
	logger.Info("filtered results", zap.Int("attempted", out.Parsed), zap.Int("succeeded", out.Selected))
	if len(results) == 0 {
		logger.Info("no results to sync")
		return out, nil
	}

	// connection check
	start = now()
	projects, err := p.Registry.CheckConnection(ctx)
	if err != nil {
		stage("check", start)
		return out, err
	}
	target, err := p.Registry.CheckTarget(ctx, in.ProjectID, in.SuiteID)
	stage("check", start)
	if err != nil {
		return out, err
	}
	out.Target = &target
	logger.Info("connected to TestRail",
		zap.Int("projects", len(projects)),
		zap.String("project", target.Project.Name),
		zap.String("suite", target.Suite.Name),
	)

	// sync
	start = now()
	ids, stats := p.Syncer.Sync(ctx, results)
	stage("sync", start)
	out.CaseMap = ids
	out.Sync = stats
	if p.Metrics != nil {
		p.Metrics.ObserveCases("created", stats.Created)
		p.Metrics.ObserveCases("updated", stats.Updated)
		p.Metrics.ObserveCases("failed", stats.Failed)
		p.Metrics.ObserveCases("skipped", stats.Skipped)
	}
	if ids.Len() == 0 {
		return out, ErrNoCases
	}

	// run
	start = now()
	runID, err := p.Runner.CreateRun(ctx, in.ProjectID, in.SuiteID, in.Build, ids.CaseIDs())
	stage("create_run", start)
	if err != nil {
		return out, err
	}
	out.RunID = runID
	out.RunURL = p.Runner.RunURL(runID, "")

	// submit
	start = now()
	sub, ok := p.Runner.SubmitResults(ctx, runID, results, ids)
	stage("submit", start)
	out.Submission = sub
	out.SubmitFailed = !ok
	if p.Metrics != nil {
		p.Metrics.ObserveSubmission("submitted", sub.Submitted)
		p.Metrics.ObserveSubmission("unresolved", sub.Unresolved)
	}
	if !ok {
		out.Warnings = append(out.Warnings, fmt.Sprintf("results submission failed for run %d; the run is left open", runID))
	}

	if in.Attach {
		start = now()
		if err := p.Runner.AttachArtifact(ctx, runID, in.ArtifactPath); err != nil {
			warn("attach artifact failed", err)
		} else {
			out.Attached = true
		}
		stage("attach", start)
	}

	if p.Archive != nil {
		start = now()
		key := p.Archive.Key(in.Build.BuildNumber, in.InvocationID, in.ArtifactPath)
		if obj, err := p.Archive.Upload(ctx, key, in.ArtifactPath); err != nil {
			warn("archive artifact failed", err)
		} else {
			out.Archived = &obj
			logger.Info("archived artifact", zap.String("bucket", obj.Bucket), zap.String("key", obj.Key))
		}
		stage("archive", start)
	}

	start = now()
	if rep, err := p.Runner.GenerateReport(ctx, runID); err != nil {
		warn("generate report failed", err)
	} else {
		out.Report = &rep
		if rep.URL != "" {
			out.RunURL = rep.URL
		}
	}
	stage("report", start)

	if in.CloseRun && !out.SubmitFailed {
		if err := p.Runner.CloseRun(ctx, runID); err != nil {
			warn("close run failed", err)
		} else {
			out.Closed = true
		}
	}

	if p.Writer != nil && in.RunDataFile != "" {
		data := RunData{
			InvocationID: in.InvocationID,
			RunID:        runID,
			CaseMap:      ids,
			Report:       out.Report,
			Summary:      out.Summary,
			Submission:   sub,
			Build:        in.Build,
		}
		if path, err := p.Writer.WriteJSON(in.RunDataFile, data); err != nil {
			warn("write run data failed", err)
		} else {
			out.RunDataPath = path
		}
	}

	logger.Info("sync complete",
		zap.Int("run_id", runID),
		zap.Int("attempted", out.Selected),
		zap.Int("succeeded", sub.Submitted),
		zap.Bool("submit_failed", out.SubmitFailed),
		zap.Int("warnings", len(out.Warnings)),
	)
	return out, nil
}
