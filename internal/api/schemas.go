package api

import (
	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/render"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	Sessions int    `json:"sessions"`
	Remote   bool   `json:"remote"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateSessionRequest opens a saved project when ProjectID is set and
// starts a new unsaved project otherwise.
type CreateSessionRequest struct {
	ProjectID   string `json:"projectId,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type SessionsResponse struct {
	Sessions []string `json:"sessions"`
}

type AppendClipRequest struct {
	AssetID string `json:"assetId"`
}

// TimeRequest carries a global timeline position in seconds.
type TimeRequest struct {
	Time *float64 `json:"time"`
}

type MoveClipRequest struct {
	Index *int `json:"index"`
}

type AddAudioRequest struct {
	AssetID   string  `json:"assetId"`
	StartTime float64 `json:"startTime"`
}

type VolumeRequest struct {
	Volume *float64 `json:"volume"`
}

type ToolRequest struct {
	Tool string `json:"tool"`
}

// TimeUpdateRequest is a progress report from the browser player for the
// directive with sequence number Seq.
type TimeUpdateRequest struct {
	Seq  uint64   `json:"seq"`
	Time *float64 `json:"time"`
}

type EndedRequest struct {
	Seq uint64 `json:"seq"`
}

type ExportRequest struct {
	Resolution string `json:"resolution,omitempty"`
	Format     string `json:"format,omitempty"`
}

type ExportResponse struct {
	JobID         string          `json:"jobId"`
	ProjectID     string          `json:"projectId"`
	Settings      render.Settings `json:"settings"`
	TotalDuration float64         `json:"totalDuration"`
}

type ExportsResponse struct {
	Exports []render.Progress `json:"exports"`
}

type ImportRequest struct {
	UserFileID string `json:"userFileId"`
}

type AssetsResponse struct {
	Assets []*assets.Record `json:"assets"`
}
