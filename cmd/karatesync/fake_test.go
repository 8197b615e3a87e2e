package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bgricker/karatesync/internal/testrail"
)

const (
	fakeEmail  = "qa@example.com"
	fakeAPIKey = "secret-key"
	fakeRunID  = 77
)

// fakeTestRail is an in-memory TestRail holding one project (1), one suite
// (2) and two sections, "Karate" (10) and "API" (99).
type fakeTestRail struct {
	t      *testing.T
	server *httptest.Server

	mu          sync.Mutex
	cases       []testrail.Case
	nextCaseID  int
	run         *testrail.Run
	runFields   testrail.RunFields
	tests       []testrail.Test
	results     []testrail.TestResult
	attachments int
	closed      bool
	failResults bool
	calls       []string
}

func newFakeTestRail(t *testing.T) *fakeTestRail {
	t.Helper()
	f := &fakeTestRail{t: t, nextCaseID: 1000}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeTestRail) URL() string { return f.server.URL }

func (f *fakeTestRail) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != fakeEmail || pass != fakeAPIKey {
		reply(w, http.StatusUnauthorized, map[string]string{"error": "Authentication failed"})
		return
	}
	if r.URL.Path != "/index.php" {
		reply(w, http.StatusNotFound, map[string]string{"error": "unknown path " + r.URL.Path})
		return
	}
	raw := strings.TrimPrefix(r.URL.RawQuery, "/api/v2/")
	endpoint, _, _ := strings.Cut(raw, "&")
	name, idText, _ := strings.Cut(endpoint, "/")
	id, _ := strconv.Atoi(idText)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)

	switch name {
	case "get_projects":
		reply(w, http.StatusOK, map[string]any{
			"offset": 0, "limit": 250, "size": 1,
			"_links":   map[string]any{"next": nil},
			"projects": []testrail.Project{{ID: 1, Name: "Public API"}},
		})
	case "get_project":
		if id != 1 {
			reply(w, http.StatusBadRequest, map[string]string{"error": "Field :project_id is not a valid or accessible project."})
			return
		}
		reply(w, http.StatusOK, testrail.Project{ID: 1, Name: "Public API", SuiteMode: 3})
	case "get_suite":
		if id != 2 {
			reply(w, http.StatusBadRequest, map[string]string{"error": "Field :suite_id is not a valid test suite."})
			return
		}
		reply(w, http.StatusOK, testrail.Suite{ID: 2, Name: "Master", ProjectID: 1})
	case "get_sections":
		reply(w, http.StatusOK, map[string]any{"sections": []testrail.Section{
			{ID: 10, SuiteID: 2, Name: "Karate"},
			{ID: 99, SuiteID: 2, Name: "API"},
		}})
	case "get_runs":
		runs := []testrail.Run{{ID: 70, SuiteID: 2, ProjectID: 1, Name: "Build #41 - main", CreatedOn: 1700000000}}
		if f.run != nil {
			runs = append(runs, *f.run)
		}
		reply(w, http.StatusOK, map[string]any{"runs": runs, "_links": map[string]any{"next": nil}})
	case "get_cases":
		reply(w, http.StatusOK, f.cases)
	case "add_case":
		var fields testrail.CaseFields
		if !f.decode(w, r, &fields) {
			return
		}
		f.nextCaseID++
		c := testrail.Case{ID: f.nextCaseID, Title: fields.Title, SectionID: id, SuiteID: 2, PriorityID: fields.PriorityID, AutomationID: fields.AutomationID, Feature: fields.Feature, Refs: fields.Refs}
		f.cases = append(f.cases, c)
		reply(w, http.StatusOK, c)
	case "update_case":
		var fields testrail.CaseFields
		if !f.decode(w, r, &fields) {
			return
		}
		for i := range f.cases {
			if f.cases[i].ID == id {
				f.cases[i].Title = fields.Title
				f.cases[i].PriorityID = fields.PriorityID
				reply(w, http.StatusOK, f.cases[i])
				return
			}
		}
		reply(w, http.StatusBadRequest, map[string]string{"error": "Field :case_id is not a valid test case."})
	case "add_run":
		if !f.decode(w, r, &f.runFields) {
			return
		}
		f.run = &testrail.Run{ID: fakeRunID, SuiteID: f.runFields.SuiteID, ProjectID: id, Name: f.runFields.Name, CreatedOn: 1700000500, URL: f.server.URL + "/index.php?/runs/view/77"}
		f.tests = nil
		for i, caseID := range f.runFields.CaseIDs {
			f.tests = append(f.tests, testrail.Test{ID: 500 + i, CaseID: caseID, RunID: fakeRunID})
		}
		reply(w, http.StatusOK, f.run)
	case "get_run":
		if f.run == nil || id != fakeRunID {
			reply(w, http.StatusBadRequest, map[string]string{"error": "Field :run_id is not a valid test run."})
			return
		}
		reply(w, http.StatusOK, f.run)
	case "get_tests":
		reply(w, http.StatusOK, map[string]any{"tests": f.tests})
	case "add_results":
		if f.failResults {
			reply(w, http.StatusBadRequest, map[string]string{"error": "Field :results cannot be empty."})
			return
		}
		var batch struct {
			Results []testrail.ResultEntry `json:"results"`
		}
		if !f.decode(w, r, &batch) {
			return
		}
		created := make([]testrail.TestResult, 0, len(batch.Results))
		for _, e := range batch.Results {
			res := testrail.TestResult{ID: len(f.results) + 1, TestID: e.TestID, StatusID: e.StatusID, Comment: e.Comment, Elapsed: e.Elapsed}
			f.results = append(f.results, res)
			created = append(created, res)
		}
		reply(w, http.StatusOK, created)
	case "get_results_for_run":
		newest := make([]testrail.TestResult, 0, len(f.results))
		for i := len(f.results) - 1; i >= 0; i-- {
			newest = append(newest, f.results[i])
		}
		reply(w, http.StatusOK, map[string]any{"results": newest})
	case "add_attachment_to_run":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if _, _, err := r.FormFile("attachment"); err != nil {
			reply(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		f.attachments++
		reply(w, http.StatusOK, map[string]any{"attachment_id": f.attachments})
	case "close_run":
		f.closed = true
		reply(w, http.StatusOK, f.run)
	default:
		reply(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint " + name})
	}
}

func (f *fakeTestRail) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid body: %v", err)})
		return false
	}
	return true
}

// fakeState is a copy of what the fake server has recorded.
type fakeState struct {
	cases       []testrail.Case
	runFields   testrail.RunFields
	results     []testrail.TestResult
	attachments int
	closed      bool
	calls       []string
}

func (f *fakeTestRail) snapshot() fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeState{
		cases:       append([]testrail.Case(nil), f.cases...),
		runFields:   f.runFields,
		results:     append([]testrail.TestResult(nil), f.results...),
		attachments: f.attachments,
		closed:      f.closed,
		calls:       append([]string(nil), f.calls...),
	}
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

const karateArtifact = `{"allScenarios":[
  {"featureName":"auth","name":"login","failed":false,"durationMillis":1250},
  {"featureName":"users","name":"list","failed":true,"error":"status code was: 500, expected: 200","durationMillis":40}
]}`

// workspace creates a temporary working directory holding karate.json, makes
// it the current directory and points the environment at server.
func workspace(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "karate.json", karateArtifact)
	chdir(t, dir)

	env := map[string]string{
		"TESTRAIL_URL":              serverURL,
		"TESTRAIL_EMAIL":            fakeEmail,
		"TESTRAIL_USER":             "",
		"TESTRAIL_API_KEY":          fakeAPIKey,
		"TESTRAIL_PROJECT_ID":       "1",
		"TESTRAIL_SUITE_ID":         "2",
		"TESTRAIL_SECTION":          "",
		"TESTRAIL_SECTION_ID":       "",
		"BUILD_NUMBER":              "42",
		"BRANCH_NAME":               "main",
		"COMMIT_SHA":                "0123456789abcdef",
		"COMMIT_MESSAGE":            "Add login tests",
		"JIRA_PARENT_ISSUE":         "QA-7",
		"TEST_ENVIRONMENT":          "staging",
		"KARATESYNC_LOG_LEVEL":      "error",
		"KARATESYNC_ARCHIVE_BUCKET": "",
		"KARATESYNC_LOG_FORMAT":     "json",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
