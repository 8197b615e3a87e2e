package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// AddAttachmentToRun uploads the file at path as a multipart "attachment"
// field. name overrides the uploaded file name when non-empty.
func (c *Client) AddAttachmentToRun(ctx context.Context, runID int, path, name string) (*Attachment, error) {
	const operation = "add attachment to run"
	endpoint := fmt.Sprintf("add_attachment_to_run/%d", runID)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open %q: %w", operation, path, err)
	}
	defer f.Close()
	if name == "" {
		name = filepath.Base(path)
	}

	c.logger.Info("API request", zap.String("operation", operation), zap.String("method", http.MethodPost), zap.String("endpoint", endpoint), zap.String("file", path))
	call := Call{Operation: operation, Method: http.MethodPost, Endpoint: endpoint, Payload: []byte(name)}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		SetFileReader("attachment", name, f).
		Post(endpoint)
	elapsed := time.Since(start)
	if err != nil {
		call.Err = fmt.Errorf("%s: do request: %w", operation, err)
		c.observe(operation, 0, elapsed)
		c.record(ctx, call)
		return nil, call.Err
	}

	call.StatusCode = resp.StatusCode()
	c.observe(operation, call.StatusCode, elapsed)
	if call.StatusCode < 200 || call.StatusCode >= 300 {
		apiErr := newAPIError(operation, call.StatusCode, errorMessage(resp))
		call.Err = apiErr
		c.record(ctx, call)
		return nil, apiErr
	}
	c.record(ctx, call)

	var a Attachment
	if body := bytes.TrimSpace(resp.Body()); len(body) > 0 {
		if err := json.Unmarshal(body, &a); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", operation, err)
		}
	}
	return &a, nil
}
