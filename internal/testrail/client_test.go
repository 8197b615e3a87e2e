package testrail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// route is an API call as the server sees it: TestRail puts the endpoint in
// the raw query ("/api/v2/get_cases/1&suite_id=2").
type route struct {
	endpoint string
	params   url.Values
}

func parseRoute(t *testing.T, r *http.Request) route {
	t.Helper()
	require.Equal(t, "/index.php", r.URL.Path)
	raw := strings.TrimPrefix(r.URL.RawQuery, "/api/v2/")
	endpoint, rest, _ := strings.Cut(raw, "&")
	params, err := url.ParseQuery(rest)
	require.NoError(t, err)
	return route{endpoint: endpoint, params: params}
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, rt route), opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "qa@example.com" || pass != "secret-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Authentication failed: invalid or missing user/password or session cookie."}`)
			return
		}
		handler(w, r, parseRoute(t, r))
	}))
	t.Cleanup(server.Close)

	opts = append([]Option{WithHTTPClient(server.Client())}, opts...)
	client, err := New(server.URL+"/", " qa@example.com ", "secret-key\n", opts...)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("  ", "a", "b")
	require.Error(t, err)

	_, err = New("https://x.testrail.io", "a", "b", WithTimeout(-time.Second))
	require.Error(t, err)
}

func TestCheckConnectionWrappedAndBare(t *testing.T) {
	bodies := map[string]string{
		"wrapped": `{"offset":0,"limit":250,"size":2,"_links":{"next":null,"prev":null},"projects":[{"id":1,"name":"API"},{"id":2,"name":"Web"}]}`,
		"bare":    `[{"id":1,"name":"API"},{"id":2,"name":"Web"}]`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "get_projects", rt.endpoint)
				writeJSON(w, http.StatusOK, body)
			})

			projects, err := client.CheckConnection(context.Background())
			require.NoError(t, err)
			require.Len(t, projects, 2)
			assert.Equal(t, "Web", projects[1].Name)
		})
	}
}

func TestCheckConnectionUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"Authentication failed"}`)
	}))
	defer server.Close()

	client, err := New(server.URL, "qa@example.com", "wrong", WithHTTPClient(server.Client()))
	require.NoError(t, err)

	_, err = client.CheckConnection(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Authentication failed")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "get projects", apiErr.Operation())
}

func TestGetSectionsSendsSuite(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, "get_sections/7", rt.endpoint)
		assert.Equal(t, "3", rt.params.Get("suite_id"))
		writeJSON(w, http.StatusOK, `{"sections":[{"id":11,"suite_id":3,"name":"Karate","parent_id":null}]}`)
	})

	sections, err := client.GetSections(context.Background(), 7, 3)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, 11, sections[0].ID)
	assert.Nil(t, sections[0].ParentID)
}

func TestCheckTarget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		switch rt.endpoint {
		case "get_project/1":
			writeJSON(w, http.StatusOK, `{"id":1,"name":"Public API","suite_mode":3}`)
		case "get_suite/2":
			writeJSON(w, http.StatusOK, `{"id":2,"name":"Master","project_id":1}`)
		case "get_suite/3":
			writeJSON(w, http.StatusOK, `{"id":3,"name":"Other","project_id":9}`)
		default:
			writeJSON(w, http.StatusBadRequest, `{"error":"Field :project_id is not a valid or accessible project."}`)
		}
	})
	ctx := context.Background()

	target, err := client.CheckTarget(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Public API", target.Project.Name)
	assert.Equal(t, "Master", target.Suite.Name)

	_, err = client.CheckTarget(ctx, 1, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to project 9")

	_, err = client.CheckTarget(ctx, 5, 2)
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))
	assert.Contains(t, err.Error(), "check project 5")
}

func TestLatestRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		switch rt.endpoint {
		case "get_runs/1":
			writeJSON(w, http.StatusOK, `{"runs":[
				{"id":70,"suite_id":2,"created_on":1700000000},
				{"id":77,"suite_id":2,"created_on":1700000500},
				{"id":80,"suite_id":4,"created_on":1700000900}
			],"_links":{"next":null}}`)
		case "get_runs/2":
			writeJSON(w, http.StatusOK, `{"runs":[]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	run, err := client.LatestRun(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 77, run.ID)

	run, err = client.LatestRun(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 80, run.ID)

	_, err = client.LatestRun(ctx, 2, 0)
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestGetCasesFollowsPagination(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		calls++
		assert.Equal(t, "get_cases/1", rt.endpoint)
		assert.Equal(t, "2", rt.params.Get("suite_id"))
		switch rt.params.Get("offset") {
		case "":
			writeJSON(w, http.StatusOK, `{"offset":0,"limit":1,"size":1,"_links":{"next":"/api/v2/get_cases/1&suite_id=2&limit=1&offset=1"},"cases":[{"id":100,"title":"a","custom_automation_id":"F.a"}]}`)
		case "1":
			writeJSON(w, http.StatusOK, `{"offset":1,"limit":1,"size":1,"_links":{"next":null},"cases":[{"id":101,"title":"b","custom_automation_id":null}]}`)
		default:
			t.Errorf("unexpected offset %q", rt.params.Get("offset"))
		}
	})

	cases, err := client.GetCases(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, cases, 2)
	assert.Equal(t, "F.a", cases[0].AutomationID)
	assert.Equal(t, "", cases[1].AutomationID)
}

func TestAddCasePayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "add_case/11", rt.endpoint)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Get by id", body["title"])
		assert.Equal(t, "Posts.Get by id", body["custom_automation_id"])
		assert.Equal(t, float64(4), body["priority_id"])
		assert.Equal(t, float64(1), body["custom_is_automated"])
		_, hasRefs := body["refs"]
		assert.False(t, hasRefs, "empty optional fields are omitted")

		writeJSON(w, http.StatusOK, `{"id":501,"title":"Get by id","section_id":11,"custom_automation_id":"Posts.Get by id"}`)
	})

	created, err := client.AddCase(context.Background(), 11, CaseFields{
		Title:        "Get by id",
		AutomationID: "Posts.Get by id",
		PriorityID:   4,
		IsAutomated:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, 501, created.ID)
}

func TestUpdateCaseBadRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, "update_case/9", rt.endpoint)
		writeJSON(w, http.StatusBadRequest, `{"error":"Field :priority_id is not a valid priority."}`)
	})

	_, err := client.UpdateCase(context.Background(), 9, CaseFields{Title: "x", PriorityID: 99})
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "not a valid priority")
}

func TestAddRunAlwaysSendsCaseSelection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, "add_run/1", rt.endpoint)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["include_all"])
		assert.Equal(t, []any{float64(5), float64(6)}, body["case_ids"])
		assert.Equal(t, "42", body["custom_build_number"])
		_, hasJira := body["custom_jira_issue"]
		assert.False(t, hasJira)
		writeJSON(w, http.StatusOK, `{"id":77,"name":"Build #42 - main"}`)
	})

	run, err := client.AddRun(context.Background(), 1, RunFields{SuiteID: 2, Name: "Build #42 - main", CaseIDs: []int{5, 6}, BuildNumber: "42"})
	require.NoError(t, err)
	assert.Equal(t, 77, run.ID)
}

func TestGetTestsAndResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		switch rt.endpoint {
		case "get_tests/77":
			writeJSON(w, http.StatusOK, `{"tests":[{"id":900,"case_id":5,"run_id":77},{"id":901,"case_id":6,"run_id":77}]}`)
		case "get_results_for_run/77":
			writeJSON(w, http.StatusOK, `[{"id":1,"test_id":900,"status_id":1,"comment":"Test passed","elapsed":"1s"}]`)
		default:
			http.NotFound(w, r)
		}
	})

	tests, err := client.GetTests(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, 6, tests[1].CaseID)

	results, err := client.GetResultsForRun(context.Background(), 77)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusPassed, results[0].StatusID)

	_, err = client.GetRun(context.Background(), 78)
	assert.True(t, IsNotFound(err))
}

func TestAddResultsBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, "add_results/77", rt.endpoint)
		var body struct {
			Results []ResultEntry `json:"results"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Results, 2)
		assert.Equal(t, ResultEntry{TestID: 901, StatusID: StatusFailed, Comment: "boom", Elapsed: "1.50s"}, body.Results[1])
		writeJSON(w, http.StatusOK, `[{"id":1,"test_id":900,"status_id":1},{"id":2,"test_id":901,"status_id":5}]`)
	})

	created, err := client.AddResults(context.Background(), 77, []ResultEntry{
		{TestID: 900, StatusID: StatusPassed, Comment: "Test passed"},
		{TestID: 901, StatusID: StatusFailed, Comment: "boom", Elapsed: "1.50s"},
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)

	_, err = client.AddResults(context.Background(), 77, nil)
	require.Error(t, err)
}

func TestAddAttachmentToRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "karate-summary.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"featureSummary":[]}`), 0o644))

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		assert.Equal(t, "add_attachment_to_run/77", rt.endpoint)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("attachment")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "karate-summary.json", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, `{"featureSummary":[]}`, string(data))
		writeJSON(w, http.StatusOK, `{"attachment_id":"2ec27be4-812f-4806-9a3f-5ae6e1e2a5e4"}`)
	})

	a, err := client.AddAttachmentToRun(context.Background(), 77, path, "")
	require.NoError(t, err)
	assert.Equal(t, FlexID("2ec27be4-812f-4806-9a3f-5ae6e1e2a5e4"), a.ID)

	_, err = client.AddAttachmentToRun(context.Background(), 77, filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)
}

func TestFlexIDNumeric(t *testing.T) {
	var a Attachment
	require.NoError(t, json.Unmarshal([]byte(`{"attachment_id":443}`), &a))
	assert.Equal(t, FlexID("443"), a.ID)
}

type memRecorder struct {
	mu    sync.Mutex
	calls []Call
}

func (m *memRecorder) Record(_ context.Context, call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return nil
}

type countObserver struct {
	mu    sync.Mutex
	codes map[string][]int
}

func (o *countObserver) ObserveRequest(operation string, statusCode int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string][]int)
	}
	o.codes[operation] = append(o.codes[operation], statusCode)
}

func TestRecorderSeesMutatingCallsOnly(t *testing.T) {
	rec := &memRecorder{}
	obs := &countObserver{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request, rt route) {
		switch rt.endpoint {
		case "get_case/1":
			writeJSON(w, http.StatusOK, `{"id":1}`)
		case "update_case/1":
			writeJSON(w, http.StatusOK, `{"id":1}`)
		case "close_run/5":
			writeJSON(w, http.StatusForbidden, `{"error":"No access"}`)
		}
	}, WithRecorder(rec), WithObserver(obs))

	ctx := context.Background()
	_, err := client.GetCase(ctx, 1)
	require.NoError(t, err)
	_, err = client.UpdateCase(ctx, 1, CaseFields{Title: "t"})
	require.NoError(t, err)
	_, err = client.CloseRun(ctx, 5)
	require.Error(t, err)
	assert.True(t, IsForbidden(err))

	require.Len(t, rec.calls, 2)
	assert.Equal(t, "update case", rec.calls[0].Operation)
	assert.Equal(t, "update_case/1", rec.calls[0].Endpoint)
	assert.JSONEq(t, `{"title":"t"}`, string(rec.calls[0].Payload))
	assert.Equal(t, http.StatusOK, rec.calls[0].StatusCode)
	assert.NoError(t, rec.calls[0].Err)

	assert.Equal(t, "close run", rec.calls[1].Operation)
	assert.Equal(t, http.StatusForbidden, rec.calls[1].StatusCode)
	assert.Error(t, rec.calls[1].Err)

	assert.Equal(t, []int{http.StatusOK}, obs.codes["get case"])
	assert.Equal(t, []int{http.StatusForbidden}, obs.codes["close run"])
}

func TestRunURL(t *testing.T) {
	client, err := New("https://acme.testrail.io/", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "https://acme.testrail.io/index.php?/runs/view/12", client.RunURL(12))
	assert.Equal(t, "https://acme.testrail.io", client.ServerURL())
}

func TestNextEndpoint(t *testing.T) {
	assert.Equal(t, "get_cases/1&suite_id=2&offset=250", nextEndpoint("/api/v2/get_cases/1&suite_id=2&offset=250"))
	assert.Equal(t, "", nextEndpoint(""))
	assert.Equal(t, "get_runs/3", nextEndpoint("get_runs/3"))
}
