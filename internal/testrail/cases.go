package testrail

import (
	"context"
	"fmt"
)

// GetCases lists all cases of a suite, following pagination.
func (c *Client) GetCases(ctx context.Context, projectID, suiteID int) ([]Case, error) {
	return getList[Case](ctx, c, "get cases", fmt.Sprintf("get_cases/%d", projectID), "cases", suiteParams(suiteID))
}

// GetCase returns one case.
func (c *Client) GetCase(ctx context.Context, caseID int) (*Case, error) {
	var tc Case
	if err := c.get(ctx, "get case", fmt.Sprintf("get_case/%d", caseID), nil, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

// AddCase creates a case in a section.
func (c *Client) AddCase(ctx context.Context, sectionID int, fields CaseFields) (*Case, error) {
	var tc Case
	if err := c.post(ctx, "add case", fmt.Sprintf("add_case/%d", sectionID), fields, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}

// UpdateCase overwrites the supplied fields of a case.
func (c *Client) UpdateCase(ctx context.Context, caseID int, fields CaseFields) (*Case, error) {
	var tc Case
	if err := c.post(ctx, "update case", fmt.Sprintf("update_case/%d", caseID), fields, &tc); err != nil {
		return nil, err
	}
	return &tc, nil
}
