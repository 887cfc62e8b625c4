package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(url string) *HTTPClient {
	return NewHTTPClient(Endpoint{BaseURL: url, Token: "platform-token"}, Endpoint{BaseURL: url, Token: "render-token"}, testLogger())
}

func TestHTTPClient_CreateProject(t *testing.T) {
	var receivedAuth string
	var received CreateProjectRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Project{ID: "p-1", Name: received.Name})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	project, err := client.CreateProject(context.Background(), CreateProjectRequest{Name: "Trailer", Description: "cut 1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if project.ID != "p-1" {
		t.Errorf("id = %q, want p-1", project.ID)
	}
	if receivedAuth != "Bearer platform-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer platform-token")
	}
	if received.Description != "cut 1" {
		t.Errorf("description = %q, want %q", received.Description, "cut 1")
	}
}

func TestHTTPClient_CreateProject_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x"}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).CreateProject(context.Background(), CreateProjectRequest{Name: "x"}); err == nil {
		t.Fatal("expected error for response without id")
	}
}

func TestHTTPClient_SaveTimeline(t *testing.T) {
	var body map[string]json.RawMessage
	var path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	doc := timeline.Document{Clips: []timeline.Clip{{ID: "c1", AssetID: "a1", DurationSeconds: 4}}}
	if err := newTestClient(server.URL).SaveTimeline(context.Background(), "p-1", doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if path != "/api/projects/p-1/timeline" {
		t.Errorf("path = %q", path)
	}
	raw := string(body["timelineData"])
	if !strings.Contains(raw, `"clips"`) || !strings.Contains(raw, `"audioTracks":[]`) {
		t.Errorf("timelineData = %s, want clips and empty audioTracks", raw)
	}
}

func TestHTTPClient_UploadAsset(t *testing.T) {
	var gotName, gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotContent = header.Filename, string(data)
		json.NewEncoder(w).Encode(RemoteAsset{ID: "r-1", Kind: "video", URL: "https://cdn/r-1.mp4", DurationSeconds: 12})
	}))
	defer server.Close()

	asset, err := newTestClient(server.URL).UploadAsset(context.Background(), "clip.mp4", 5, strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotName != "clip.mp4" || gotContent != "bytes" {
		t.Errorf("server got %q/%q", gotName, gotContent)
	}
	if asset.URL != "https://cdn/r-1.mp4" || asset.DurationSeconds != 12 {
		t.Errorf("asset = %+v", asset)
	}
}

func TestHTTPClient_ExportRoundTrip(t *testing.T) {
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/exports":
			var req ExportRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Resolution != "720p" {
				t.Errorf("resolution = %q", req.Resolution)
			}
			json.NewEncoder(w).Encode(ExportHandle{ID: "h-9"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/exports/h-9":
			json.NewEncoder(w).Encode(ExportStatus{State: "running", Percentage: 40, Stage: "encoding"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	handle, err := client.RequestExport(context.Background(), ExportRequest{JobID: "j", ProjectID: "p", Resolution: "720p", Format: "mp4"})
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if receivedAuth != "Bearer render-token" {
		t.Errorf("auth = %q, want render token", receivedAuth)
	}

	status, err := client.ExportStatus(context.Background(), handle.ID)
	if err != nil {
		t.Fatalf("ExportStatus: %v", err)
	}
	if status.Percentage != 40 || status.Stage != "encoding" {
		t.Errorf("status = %+v", status)
	}
}

func TestHTTPClient_ReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"invalid timeline"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).SaveTimeline(context.Background(), "p", timeline.Document{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status_code = %d, want %d", apiErr.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(apiErr.Body, "invalid timeline") {
		t.Fatalf("body = %q, want to contain invalid timeline", apiErr.Body)
	}
	if IsRetryable(err) {
		t.Fatal("4xx must not be retryable")
	}
}

func TestHTTPClient_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ExportStatus(context.Background(), "h")
	if !IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestHTTPClient_SendsRequestID(t *testing.T) {
	var requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Heimdex-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).SaveTimeline(context.Background(), "p", timeline.Document{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requestID == "" {
		t.Fatal("expected X-Heimdex-Request-Id header")
	}
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestClient(server.URL).SaveTimeline(ctx, "p", timeline.Document{})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !IsRetryable(err) {
		t.Fatal("transport failures are retryable")
	}
}

func TestHTTPClient_UnconfiguredEndpoint(t *testing.T) {
	client := NewHTTPClient(Endpoint{BaseURL: "http://platform.invalid"}, Endpoint{}, testLogger())

	if _, err := client.RequestExport(context.Background(), ExportRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("RequestExport err = %v, want ErrNotConfigured", err)
	}
}

func TestAPIError_IsRetryable(t *testing.T) {
	if !(&APIError{StatusCode: http.StatusInternalServerError}).IsRetryable() {
		t.Fatal("expected 5xx error to be retryable")
	}
	if (&APIError{StatusCode: http.StatusBadRequest}).IsRetryable() {
		t.Fatal("expected 4xx error to be permanent")
	}
}

func TestHTTPClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*HTTPClient)(nil)
}

func TestStubClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*StubClient)(nil)
}

func TestStubClient_OfflineBehaviour(t *testing.T) {
	stub := NewStubClient(testLogger())
	ctx := context.Background()

	p, err := stub.CreateProject(ctx, CreateProjectRequest{Name: "Local"})
	if err != nil || p.ID == "" {
		t.Fatalf("CreateProject = %+v, %v", p, err)
	}
	if err := stub.SaveTimeline(ctx, p.ID, timeline.Document{}); err != nil {
		t.Fatalf("SaveTimeline: %v", err)
	}
	if asset, err := stub.UploadAsset(ctx, "a.mp4", 1, strings.NewReader("x")); asset != nil || err != nil {
		t.Fatalf("UploadAsset = %+v, %v; want nil, nil", asset, err)
	}
	if _, err := stub.RequestExport(ctx, ExportRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("RequestExport err = %v", err)
	}
	if stub.Remote() {
		t.Fatal("stub must not report remote")
	}
}
