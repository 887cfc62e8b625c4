package cloud

import "github.com/heimdex/heimdex-editor/internal/timeline"

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SaveTimelineRequest is the body of PUT /api/projects/{id}/timeline.
type SaveTimelineRequest struct {
	TimelineData timeline.Document `json:"timelineData"`
}

// RemoteAsset is an asset as the platform describes it after upload or import.
type RemoteAsset struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
	Name            string  `json:"name"`
	SizeBytes       int64   `json:"sizeBytes,omitempty"`
}

type ImportRequest struct {
	UserFileID string `json:"userFileId"`
}

// ExportRequest is the body of POST /api/exports on the render service.
type ExportRequest struct {
	JobID         string            `json:"jobId"`
	ProjectID     string            `json:"projectId"`
	Resolution    string            `json:"resolution"`
	Format        string            `json:"format"`
	Timeline      timeline.Document `json:"timeline"`
	TotalDuration float64           `json:"totalDuration"`
}

type ExportHandle struct {
	ID string `json:"id"`
}

// ExportStatus is the render service's view of a job. State is one of
// queued, running, complete or failed.
type ExportStatus struct {
	State       string  `json:"state"`
	Percentage  float64 `json:"percentage"`
	Stage       string  `json:"stage,omitempty"`
	DownloadURL string  `json:"downloadUrl,omitempty"`
	Error       string  `json:"error,omitempty"`
}
