package testrail

import (
	"context"
	"fmt"
)

type resultsBatch struct {
	Results []ResultEntry `json:"results"`
}

// AddResults posts a batch of results in a single call. TestRail accepts or
// rejects the batch as a whole.
func (c *Client) AddResults(ctx context.Context, runID int, entries []ResultEntry) ([]TestResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("add results: empty batch")
	}
	var created []TestResult
	if err := c.post(ctx, "add results", fmt.Sprintf("add_results/%d", runID), resultsBatch{Results: entries}, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// GetResultsForRun lists results of a run, newest first.
func (c *Client) GetResultsForRun(ctx context.Context, runID int) ([]TestResult, error) {
	return getList[TestResult](ctx, c, "get results for run", fmt.Sprintf("get_results_for_run/%d", runID), "results", nil)
}
