package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bgricker/karatesync/internal/report"
	"github.com/bgricker/karatesync/internal/testrail"
)

// GenerateReport reads a run back from TestRail and summarizes the latest
// result of every test. Results carry test ids only, so case ids come from the
// run's tests; a failure to list them leaves case ids at zero.
func (r *Runner) GenerateReport(ctx context.Context, runID int) (report.RunReport, error) {
	run, err := r.registry.GetRun(ctx, runID)
	if err != nil {
		return report.RunReport{}, fmt.Errorf("get run %d: %w", runID, err)
	}
	results, err := r.registry.GetResultsForRun(ctx, runID)
	if err != nil {
		return report.RunReport{}, fmt.Errorf("get results for run %d: %w", runID, err)
	}

	caseByTest := make(map[int]int)
	if tests, err := r.registry.GetTests(ctx, runID); err != nil {
		r.opts.Logger.Warn("list run tests failed, case ids unavailable", zap.Int("run_id", runID), zap.Error(err))
	} else {
		for _, t := range tests {
			caseByTest[t.ID] = t.CaseID
		}
	}

	rep := report.RunReport{
		RunID:    run.ID,
		Name:     run.Name,
		URL:      r.RunURL(run.ID, run.URL),
		Failures: []report.Failure{},
	}

	// newest first: the first result seen for a test is its current one
	seen := make(map[int]struct{}, len(results))
	for _, res := range results {
		if _, ok := seen[res.TestID]; ok {
			continue
		}
		seen[res.TestID] = struct{}{}

		rep.Total++
		switch res.StatusID {
		case testrail.StatusPassed:
			rep.Passed++
		case testrail.StatusFailed:
			rep.Failed++
			rep.Failures = append(rep.Failures, report.Failure{
				CaseID:  caseByTest[res.TestID],
				TestID:  res.TestID,
				Comment: res.Comment,
			})
		case testrail.StatusUntested:
			rep.Skipped++
		default:
			rep.Other++
		}
	}
	rep.PassRate = report.PassRate(rep.Passed, rep.Total)
	rep.Markdown = report.RenderMarkdown(rep)

	r.opts.Logger.Info("generated run report",
		zap.Int("run_id", runID),
		zap.Int("total", rep.Total),
		zap.Int("passed", rep.Passed),
		zap.Int("failed", rep.Failed),
		zap.Float64("pass_rate", rep.PassRate),
	)
	return rep, nil
}
