package testrail

import (
	"context"
	"fmt"
	"strconv"
)

// CheckConnection verifies credentials and reachability by listing projects.
// Callers treat a failure as fatal.
func (c *Client) CheckConnection(ctx context.Context) ([]Project, error) {
	projects, err := c.GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("check connection: %w", err)
	}
	return projects, nil
}

// Target is the project and suite a sync writes to.
type Target struct {
	Project Project `json:"project"`
	Suite   Suite   `json:"suite"`
}

// CheckTarget confirms that the project and suite exist and that the suite
// belongs to the project.
func (c *Client) CheckTarget(ctx context.Context, projectID, suiteID int) (Target, error) {
	project, err := c.GetProject(ctx, projectID)
	if err != nil {
		return Target{}, fmt.Errorf("check project %d: %w", projectID, err)
	}
	suite, err := c.GetSuite(ctx, suiteID)
	if err != nil {
		return Target{}, fmt.Errorf("check suite %d: %w", suiteID, err)
	}
	if suite.ProjectID != 0 && suite.ProjectID != project.ID {
		return Target{}, fmt.Errorf("check suite %d: belongs to project %d, not %d", suiteID, suite.ProjectID, project.ID)
	}
	return Target{Project: *project, Suite: *suite}, nil
}

// GetProjects lists all projects visible to the user.
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	return getList[Project](ctx, c, "get projects", "get_projects", "projects", nil)
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, projectID int) (*Project, error) {
	var p Project
	if err := c.get(ctx, "get project", fmt.Sprintf("get_project/%d", projectID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetSuite returns one suite.
func (c *Client) GetSuite(ctx context.Context, suiteID int) (*Suite, error) {
	var s Suite
	if err := c.get(ctx, "get suite", fmt.Sprintf("get_suite/%d", suiteID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSections lists the sections of a suite.
func (c *Client) GetSections(ctx context.Context, projectID, suiteID int) ([]Section, error) {
	return getList[Section](ctx, c, "get sections", fmt.Sprintf("get_sections/%d", projectID), "sections", suiteParams(suiteID))
}

func suiteParams(suiteID int) map[string]string {
	if suiteID <= 0 {
		return nil
	}
	return map[string]string{"suite_id": strconv.Itoa(suiteID)}
}
