package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var ErrNotFound = errors.New("project not found")

// Service creates and saves projects. The platform assigns project ids; the
// local row mirrors what the platform holds so the editor can reopen a
// project offline.
type Service struct {
	repo     Repository
	platform cloud.Platform
	lookup   timeline.AssetLookup
	logger   *slog.Logger
}

func NewService(repo Repository, platform cloud.Platform, lookup timeline.AssetLookup, logger *slog.Logger) *Service {
	return &Service{repo: repo, platform: platform, lookup: lookup, logger: logger}
}

// CreateProject registers a new project with the platform and records it locally.
func (s *Service) CreateProject(ctx context.Context, name, description string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	remote, err := s.platform.CreateProject(ctx, cloud.CreateProjectRequest{Name: name, Description: description})
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	p := &Project{
		ID:          remote.ID,
		Name:        name,
		Description: description,
		Timeline:    timeline.Document{}.Clone(),
		Settings:    render.DefaultSettings,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return "", fmt.Errorf("record project: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", p.ID, "name", name)
	}
	return p.ID, nil
}

// SaveTimeline overwrites the stored timeline, locally first and then on the
// platform. Either failure is returned so the caller keeps the edit dirty.
func (s *Service) SaveTimeline(ctx context.Context, projectID string, doc timeline.Document) error {
	if err := timeline.Validate(doc, s.lookup); err != nil {
		return fmt.Errorf("refusing to save invalid timeline: %w", err)
	}
	if err := s.repo.SaveTimeline(ctx, projectID, doc); err != nil {
		return err
	}
	if err := s.platform.SaveTimeline(ctx, projectID, doc); err != nil {
		return err
	}
	return nil
}

// Open loads a project and its timeline. A stored timeline that breaks the
// track invariants is rejected rather than silently repaired.
func (s *Service) Open(ctx context.Context, id string) (*Project, *timeline.Timeline, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	tl, err := timeline.FromDocument(p.Timeline, s.lookup)
	if err != nil {
		return nil, nil, fmt.Errorf("project %s: %w", id, err)
	}
	return p, tl, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context) ([]*Summary, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteProject(ctx, id)
}

// RememberSettings stores the last export settings used for a project.
func (s *Service) RememberSettings(ctx context.Context, id string, settings render.Settings) error {
	return s.repo.UpdateSettings(ctx, id, settings.Normalize())
}

func (s *Service) Exports(ctx context.Context, id string) ([]render.Progress, error) {
	return s.repo.ListExportJobs(ctx, id)
}
