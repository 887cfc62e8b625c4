// Package project stores editor projects, their assets and export jobs in
// SQLite and keeps the platform in step on create and save.
package project

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Timeline    timeline.Document `json:"timelineData"`
	AssetIDs    []string          `json:"assets"`
	Settings    render.Settings   `json:"settings"`
	Revision    int64             `json:"revision"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Summary is a project without its timeline, for listings.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ClipCount   int       `json:"clipCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const DefaultName = "Untitled project"
