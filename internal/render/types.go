// Package render packages a timeline snapshot into a one-shot export job for
// the render service and tracks the job to completion.
package render

import (
	"errors"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrInvalidSettings = errors.New("invalid export settings")
	ErrEmptyTimeline   = errors.New("timeline has no clips")
	ErrNoProject       = errors.New("project has not been saved")
	ErrJobNotFound     = errors.New("export job not found")
)

type Settings struct {
	Resolution string `json:"resolution"`
	Format     string `json:"format"`
}

// Job is immutable once built. Timeline is a private copy of the editor
// document taken at request time.
type Job struct {
	ID            string            `json:"id"`
	ProjectID     string            `json:"projectId"`
	Settings      Settings          `json:"settings"`
	Timeline      timeline.Document `json:"timeline"`
	TotalDuration float64           `json:"totalDuration"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateFailed   State = "failed"
)

func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

type Progress struct {
	JobID       string    `json:"jobId"`
	ProjectID   string    `json:"projectId,omitempty"`
	State       State     `json:"state"`
	Percentage  float64   `json:"percentage"`
	Stage       string    `json:"stage,omitempty"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
