package cloud

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Platform is the content platform: projects, timelines and asset storage.
type Platform interface {
	CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error)
	SaveTimeline(ctx context.Context, projectID string, doc timeline.Document) error
	UploadAsset(ctx context.Context, filename string, size int64, r io.Reader) (*RemoteAsset, error)
	ImportFromLibrary(ctx context.Context, userFileID string) (*RemoteAsset, error)
}

// Renderer is the render service.
type Renderer interface {
	RequestExport(ctx context.Context, req ExportRequest) (*ExportHandle, error)
	ExportStatus(ctx context.Context, handleID string) (*ExportStatus, error)
}

type Client interface {
	Platform
	Renderer
	// Remote reports whether calls reach a real service.
	Remote() bool
}

// StubClient keeps the editor usable offline. Projects get local ids, saves
// and uploads stay on disk, and exports fail with ErrNotConfigured.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Remote() bool { return false }

func (c *StubClient) CreateProject(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	id := uuid.NewString()
	c.logger.Info("cloud stub: project created locally", "project_id", id, "name", req.Name)
	return &Project{ID: id, Name: req.Name, Description: req.Description}, nil
}

func (c *StubClient) SaveTimeline(ctx context.Context, projectID string, doc timeline.Document) error {
	c.logger.Debug("cloud stub: timeline save skipped", "project_id", projectID, "clips", len(doc.Clips))
	return nil
}

// UploadAsset returns nil, nil: the asset is served from local storage.
func (c *StubClient) UploadAsset(ctx context.Context, filename string, size int64, r io.Reader) (*RemoteAsset, error) {
	c.logger.Debug("cloud stub: upload skipped", "filename", filename, "size", size)
	return nil, nil
}

func (c *StubClient) ImportFromLibrary(ctx context.Context, userFileID string) (*RemoteAsset, error) {
	c.logger.Info("cloud stub: library import requested", "user_file_id", userFileID)
	return nil, ErrNotConfigured
}

func (c *StubClient) RequestExport(ctx context.Context, req ExportRequest) (*ExportHandle, error) {
	c.logger.Info("cloud stub: export requested", "job_id", req.JobID, "project_id", req.ProjectID)
	return nil, ErrNotConfigured
}

func (c *StubClient) ExportStatus(ctx context.Context, handleID string) (*ExportStatus, error) {
	return nil, ErrNotConfigured
}
