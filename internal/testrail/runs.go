package testrail

import (
	"context"
	"errors"
	"fmt"
)

// GetRun returns one run.
func (c *Client) GetRun(ctx context.Context, runID int) (*Run, error) {
	var r Run
	if err := c.get(ctx, "get run", fmt.Sprintf("get_run/%d", runID), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRuns lists the runs of a project.
func (c *Client) GetRuns(ctx context.Context, projectID int) ([]Run, error) {
	return getList[Run](ctx, c, "get runs", fmt.Sprintf("get_runs/%d", projectID), "runs", nil)
}

// ErrNoRuns is returned by LatestRun when the project has no matching run.
var ErrNoRuns = errors.New("no runs found")

// LatestRun returns the most recently created run of a project. A positive
// suiteID restricts the search to that suite.
func (c *Client) LatestRun(ctx context.Context, projectID, suiteID int) (*Run, error) {
	runs, err := c.GetRuns(ctx, projectID)
	if err != nil {
		return nil, err
	}
	var latest *Run
	for i := range runs {
		r := &runs[i]
		if suiteID > 0 && r.SuiteID != suiteID {
			continue
		}
		if latest == nil || r.CreatedOn > latest.CreatedOn || (r.CreatedOn == latest.CreatedOn && r.ID > latest.ID) {
			latest = r
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w in project %d", ErrNoRuns, projectID)
	}
	return latest, nil
}

// AddRun creates a run in a project.
func (c *Client) AddRun(ctx context.Context, projectID int, fields RunFields) (*Run, error) {
	if fields.CaseIDs == nil {
		fields.CaseIDs = []int{}
	}
	var r Run
	if err := c.post(ctx, "add run", fmt.Sprintf("add_run/%d", projectID), fields, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CloseRun archives a run. Closed runs no longer accept results.
func (c *Client) CloseRun(ctx context.Context, runID int) (*Run, error) {
	var r Run
	if err := c.post(ctx, "close run", fmt.Sprintf("close_run/%d", runID), struct{}{}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetTests lists the run-scoped tests of a run.
func (c *Client) GetTests(ctx context.Context, runID int) ([]Test, error) {
	return getList[Test](ctx, c, "get tests", fmt.Sprintf("get_tests/%d", runID), "tests", nil)
}
