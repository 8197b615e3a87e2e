package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// APIPath is appended to the server URL to reach API v2.
const APIPath = "/index.php?/api/v2"

// DefaultTimeout bounds every request when no timeout option is supplied.
const DefaultTimeout = 30 * time.Second

// Call describes one mutating request for forensic replay.
type Call struct {
	Operation  string
	Method     string
	Endpoint   string
	Payload    []byte
	StatusCode int
	Err        error
}

// Recorder receives every mutating call after it completes.
type Recorder interface {
	Record(ctx context.Context, call Call) error
}

// RequestObserver is notified of every request with its outcome.
type RequestObserver interface {
	ObserveRequest(operation string, statusCode int, elapsed time.Duration)
}

// Client is a typed wrapper over the TestRail REST API v2.
type Client struct {
	serverURL string
	http      *resty.Client
	logger    *zap.Logger
	recorder  Recorder
	observer  RequestObserver
}

// Option configures the Client during construction.
type Option func(*clientConfig) error

type clientConfig struct {
	httpClient *http.Client
	logger     *zap.Logger
	timeout    time.Duration
	recorder   Recorder
	observer   RequestObserver
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithLogger configures structured logging.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *clientConfig) error {
		cfg.logger = l
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d < 0 {
			return fmt.Errorf("testrail: negative timeout %s", d)
		}
		cfg.timeout = d
		return nil
	}
}

// WithRecorder registers a recorder for mutating calls.
func WithRecorder(r Recorder) Option {
	return func(cfg *clientConfig) error {
		cfg.recorder = r
		return nil
	}
}

// WithObserver registers a per-request observer.
func WithObserver(o RequestObserver) Option {
	return func(cfg *clientConfig) error {
		cfg.observer = o
		return nil
	}
}

// New creates a Client for the TestRail server at serverURL authenticating
// with email and API key. Requests are never retried.
func New(serverURL, email, apiKey string, opts ...Option) (*Client, error) {
	serverURL = strings.TrimSuffix(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, fmt.Errorf("testrail: server url is required")
	}

	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var rc *resty.Client
	if cfg.httpClient != nil {
		rc = resty.NewWithClient(cfg.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(serverURL + APIPath)
	rc.SetBasicAuth(strings.TrimSpace(email), strings.TrimSpace(apiKey))
	rc.SetHeader("Accept", "application/json")
	rc.SetTimeout(cfg.timeout)
	rc.SetRetryCount(0)
	rc.SetLogger(logger.Sugar())

	return &Client{
		serverURL: serverURL,
		http:      rc,
		logger:    logger,
		recorder:  cfg.recorder,
		observer:  cfg.observer,
	}, nil
}

// ServerURL returns the server root without the API path.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// RunURL returns the browser URL of a run.
func (c *Client) RunURL(runID int) string {
	return fmt.Sprintf("%s/index.php?/runs/view/%d", c.serverURL, runID)
}

func (c *Client) get(ctx context.Context, operation, endpoint string, params map[string]string, dst any) error {
	_, err := c.do(ctx, http.MethodGet, operation, endpoint, params, nil, dst)
	return err
}

func (c *Client) post(ctx context.Context, operation, endpoint string, body, dst any) error {
	_, err := c.do(ctx, http.MethodPost, operation, endpoint, nil, body, dst)
	return err
}

// do executes one request. POST requests are mutating: their payload is
// logged and handed to the recorder whatever the outcome.
func (c *Client) do(ctx context.Context, method, operation, endpoint string, params map[string]string, body, dst any) ([]byte, error) {
	req := c.http.R().SetContext(ctx).SetError(&errorBody{})
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", operation, err)
		}
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}
	mutating := method != http.MethodGet

	if mutating {
		c.logger.Info("API request", zap.String("operation", operation), zap.String("method", method), zap.String("endpoint", endpoint), zap.ByteString("payload", payload))
	} else {
		c.logger.Debug("API request", zap.String("operation", operation), zap.String("method", method), zap.String("endpoint", endpoint))
	}

	start := time.Now()
	resp, err := req.Execute(method, endpoint)
	elapsed := time.Since(start)
	if err != nil {
		err = fmt.Errorf("%s: do request: %w", operation, err)
		c.observe(operation, 0, elapsed)
		if mutating {
			c.record(ctx, Call{Operation: operation, Method: method, Endpoint: endpoint, Payload: payload, Err: err})
		}
		return nil, err
	}

	status := resp.StatusCode()
	c.observe(operation, status, elapsed)
	c.logger.Debug("API response", zap.String("operation", operation), zap.Int("status", status), zap.Duration("elapsed", elapsed))

	if status < 200 || status >= 300 {
		apiErr := newAPIError(operation, status, errorMessage(resp))
		if mutating {
			c.record(ctx, Call{Operation: operation, Method: method, Endpoint: endpoint, Payload: payload, StatusCode: status, Err: apiErr})
		}
		return nil, apiErr
	}
	if mutating {
		c.record(ctx, Call{Operation: operation, Method: method, Endpoint: endpoint, Payload: payload, StatusCode: status})
	}

	respBody := resp.Body()
	if dst != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, dst); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return respBody, nil
}

func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*errorBody); ok && e.Error != "" {
		return e.Error
	}
	var eb errorBody
	if json.Unmarshal(resp.Body(), &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	if msg := strings.TrimSpace(string(resp.Body())); msg != "" {
		return msg
	}
	return resp.Status()
}

func (c *Client) observe(operation string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(operation, status, elapsed)
	}
}

func (c *Client) record(ctx context.Context, call Call) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, call); err != nil {
		c.logger.Warn("record call", zap.String("operation", call.Operation), zap.Error(err))
	}
}

// getList fetches a list endpoint, following _links.next pages. TestRail
// returns either a bare array or an object wrapping the array under key.
func getList[T any](ctx context.Context, c *Client, operation, endpoint, key string, params map[string]string) ([]T, error) {
	var all []T
	next := endpoint
	for page := 0; next != ""; page++ {
		var p map[string]string
		if page == 0 {
			p = params
		}
		body, err := c.do(ctx, http.MethodGet, operation, next, p, nil, nil)
		if err != nil {
			return nil, err
		}
		items, nextLink, err := decodeList[T](body, key)
		if err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", operation, err)
		}
		all = append(all, items...)
		next = nextEndpoint(nextLink)
	}
	return all, nil
}

func decodeList[T any](body []byte, key string) ([]T, string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, "", nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", err
		}
		return items, "", nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, "", err
	}
	var items []T
	if raw, ok := envelope[key]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, "", err
		}
	}
	var next string
	if raw, ok := envelope["_links"]; ok {
		var l links
		if json.Unmarshal(raw, &l) == nil && l.Next != nil {
			next = *l.Next
		}
	}
	return items, next, nil
}

// nextEndpoint turns a _links.next value such as
// "/api/v2/get_cases/1&suite_id=2&offset=250" into a request endpoint.
func nextEndpoint(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if i := strings.Index(link, "/api/v2/"); i >= 0 {
		return link[i+len("/api/v2/"):]
	}
	return strings.TrimPrefix(link, "/")
}
