package testrail

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Status ids of the built-in TestRail result statuses.
const (
	StatusPassed   = 1
	StatusBlocked  = 2
	StatusUntested = 3
	StatusRetest   = 4
	StatusFailed   = 5
)

// Project is a TestRail project.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	IsCompleted bool   `json:"is_completed"`
	SuiteMode   int    `json:"suite_mode"`
	URL         string `json:"url"`
}

// Suite is a TestRail test suite.
type Suite struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ProjectID   int    `json:"project_id"`
	URL         string `json:"url"`
}

// Section groups cases inside a suite.
type Section struct {
	ID           int    `json:"id"`
	SuiteID      int    `json:"suite_id"`
	Name         string `json:"name"`
	ParentID     *int   `json:"parent_id"`
	Depth        int    `json:"depth"`
	DisplayOrder int    `json:"display_order"`
}

// Case is a TestRail test case as returned by get_case/get_cases.
type Case struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	SectionID    int    `json:"section_id"`
	SuiteID      int    `json:"suite_id"`
	PriorityID   int    `json:"priority_id"`
	AutomationID string `json:"custom_automation_id"`
	Feature      string `json:"custom_feature"`
	Refs         string `json:"refs"`
}

// CaseFields is the payload for add_case and update_case. Optional fields are
// omitted when empty so TestRail keeps its defaults.
type CaseFields struct {
	Title         string `json:"title"`
	AutomationID  string `json:"custom_automation_id,omitempty"`
	Description   string `json:"description,omitempty"`
	Preconditions string `json:"custom_preconds,omitempty"`
	Steps         string `json:"custom_steps,omitempty"`
	Expected      string `json:"custom_expected,omitempty"`
	PriorityID    int    `json:"priority_id,omitempty"`
	Feature       string `json:"custom_feature,omitempty"`
	IsAutomated   int    `json:"custom_is_automated,omitempty"`
	StatusActual  string `json:"custom_status_actual,omitempty"`
	Refs          string `json:"refs,omitempty"`
}

// Run is a TestRail test run.
type Run struct {
	ID            int    `json:"id"`
	SuiteID       int    `json:"suite_id"`
	ProjectID     int    `json:"project_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsCompleted   bool   `json:"is_completed"`
	PassedCount   int    `json:"passed_count"`
	FailedCount   int    `json:"failed_count"`
	RetestCount   int    `json:"retest_count"`
	UntestedCount int    `json:"untested_count"`
	CreatedOn     int64  `json:"created_on"`
	URL           string `json:"url"`
}

// RunFields is the payload for add_run. include_all and case_ids are always
// sent so a run never silently includes the whole suite.
type RunFields struct {
	SuiteID     int    `json:"suite_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IncludeAll  bool   `json:"include_all"`
	CaseIDs     []int  `json:"case_ids"`
	BuildNumber string `json:"custom_build_number,omitempty"`
	Branch      string `json:"custom_branch,omitempty"`
	CommitSHA   string `json:"custom_commit_sha,omitempty"`
	Environment string `json:"custom_environment,omitempty"`
	JiraIssue   string `json:"custom_jira_issue,omitempty"`
}

// Test is the run-scoped execution slot of a case.
type Test struct {
	ID       int    `json:"id"`
	CaseID   int    `json:"case_id"`
	RunID    int    `json:"run_id"`
	StatusID int    `json:"status_id"`
	Title    string `json:"title"`
}

// ResultEntry is one element of an add_results batch.
type ResultEntry struct {
	TestID   int    `json:"test_id"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
	Version  string `json:"version,omitempty"`
}

// TestResult is a result read back from get_results_for_run.
type TestResult struct {
	ID        int    `json:"id"`
	TestID    int    `json:"test_id"`
	StatusID  int    `json:"status_id"`
	Comment   string `json:"comment"`
	Elapsed   string `json:"elapsed"`
	CreatedOn int64  `json:"created_on"`
}

// Attachment is the response of add_attachment_to_run.
type Attachment struct {
	ID FlexID `json:"attachment_id"`
}

// FlexID holds an identifier TestRail returns as a number on older servers
// and as a string on newer ones.
type FlexID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexID(n.String())
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

type links struct {
	Next *string `json:"next"`
}
