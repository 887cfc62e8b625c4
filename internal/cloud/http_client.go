package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	maxErrorBody    = 4096
	maxResponseBody = 1 << 20
)

type Endpoint struct {
	BaseURL string
	Token   string
}

// HTTPClient talks to the content platform and the render service over
// JSON/HTTP with bearer tokens. Either endpoint may be empty; calls against
// an unset endpoint fail with ErrNotConfigured.
type HTTPClient struct {
	platform   Endpoint
	render     Endpoint
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(platform, render Endpoint, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		platform: platform,
		render:   render,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// SetHTTPClient replaces the underlying client, for uploads that need a
// longer timeout or for tests.
func (c *HTTPClient) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *HTTPClient) Remote() bool { return true }

func (c *HTTPClient) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	var out Project
	if err := c.doJSON(ctx, "create project", c.platform, http.MethodPost, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("create project: response has no id")
	}
	c.logger.Info("platform project created", "project_id", out.ID, "name", out.Name)
	return &out, nil
}

func (c *HTTPClient) SaveTimeline(ctx context.Context, projectID string, doc timeline.Document) error {
	path := "/api/projects/" + url.PathEscape(projectID) + "/timeline"
	return c.doJSON(ctx, "save timeline", c.platform, http.MethodPut, path, SaveTimelineRequest{TimelineData: doc.Clone()}, nil)
}

// UploadAsset streams r to the platform as a multipart form without buffering
// the file in memory.
func (c *HTTPClient) UploadAsset(ctx context.Context, filename string, size int64, r io.Reader) (*RemoteAsset, error) {
	if c.platform.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, c.platform, http.MethodPost, "/api/assets", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Info("uploading asset to platform", "filename", filename, "size", humanize.Bytes(uint64(max(size, 0))))

	var out RemoteAsset
	if err := c.do(req, "upload asset", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ImportFromLibrary(ctx context.Context, userFileID string) (*RemoteAsset, error) {
	var out RemoteAsset
	if err := c.doJSON(ctx, "import asset", c.platform, http.MethodPost, "/api/assets/import", ImportRequest{UserFileID: userFileID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) RequestExport(ctx context.Context, req ExportRequest) (*ExportHandle, error) {
	var out ExportHandle
	if err := c.doJSON(ctx, "request export", c.render, http.MethodPost, "/api/exports", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("request export: response has no job handle")
	}
	c.logger.Info("export requested", "job_id", req.JobID, "handle", out.ID,
		"resolution", req.Resolution, "format", req.Format, "clips", len(req.Timeline.Clips))
	return &out, nil
}

func (c *HTTPClient) ExportStatus(ctx context.Context, handleID string) (*ExportStatus, error) {
	var out ExportStatus
	path := "/api/exports/" + url.PathEscape(handleID)
	if err := c.doJSON(ctx, "export status", c.render, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, op string, ep Endpoint, method, path string, in, out any) error {
	if ep.BaseURL == "" {
		return ErrNotConfigured
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, ep, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, ep Endpoint, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, ep.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Heimdex-Request-Id", uuid.NewString())
	if ep.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ep.Token)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("remote call failed", "op", op, "status", resp.StatusCode)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
