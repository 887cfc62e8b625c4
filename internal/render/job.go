package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	Resolutions = []string{"480p", "720p", "1080p", "4k"}
	Formats     = []string{"mp4", "webm", "mov"}
)

// DefaultSettings is used when a request leaves a field empty.
var DefaultSettings = Settings{Resolution: "1080p", Format: "mp4"}

// Normalize lower-cases the settings and fills empty fields from DefaultSettings.
func (s Settings) Normalize() Settings {
	out := Settings{
		Resolution: strings.ToLower(strings.TrimSpace(s.Resolution)),
		Format:     strings.ToLower(strings.TrimSpace(s.Format)),
	}
	if out.Resolution == "" {
		out.Resolution = DefaultSettings.Resolution
	}
	if out.Format == "" {
		out.Format = DefaultSettings.Format
	}
	return out
}

func (s Settings) Validate() error {
	if !contains(Resolutions, s.Resolution) {
		return fmt.Errorf("%w: resolution %q not one of %s", ErrInvalidSettings, s.Resolution, strings.Join(Resolutions, ", "))
	}
	if !contains(Formats, s.Format) {
		return fmt.Errorf("%w: format %q not one of %s", ErrInvalidSettings, s.Format, strings.Join(Formats, ", "))
	}
	return nil
}

// BuildJob snapshots doc into a new job. The caller's document is not retained.
func BuildJob(projectID string, settings Settings, doc timeline.Document) (*Job, error) {
	if projectID == "" {
		return nil, ErrNoProject
	}
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if len(doc.Clips) == 0 {
		return nil, ErrEmptyTimeline
	}
	snapshot := doc.Clone()
	return &Job{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Settings:      settings,
		Timeline:      snapshot,
		TotalDuration: snapshot.TotalDuration(),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
