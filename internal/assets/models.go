// Package assets owns the source media the timeline references: detection,
// quota checks, local storage, duration probing and the id → asset registry.
package assets

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrQuotaExceeded     = errors.New("storage quota exceeded")
	ErrNotFound          = errors.New("asset not found")
)

// DefaultImageDuration is the on-timeline length given to still images.
const DefaultImageDuration = 5.0

// Record is an Asset plus the bookkeeping the registry keeps about it.
type Record struct {
	timeline.Asset
	Path      string    `json:"-"`
	MimeType  string    `json:"mimeType,omitempty"`
	SizeBytes int64     `json:"sizeBytes"`
	Checksum  string    `json:"checksum,omitempty"`
	RemoteID  string    `json:"remoteId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists asset records.
type Store interface {
	CreateAsset(ctx context.Context, rec *Record) error
	GetAsset(ctx context.Context, id string) (*Record, error)
	ListAssets(ctx context.Context) ([]*Record, error)
	TotalAssetBytes(ctx context.Context) (int64, error)
}

type format struct {
	kind timeline.AssetKind
	mime string
}

var formats = map[string]format{
	".mp4":  {timeline.KindVideo, "video/mp4"},
	".webm": {timeline.KindVideo, "video/webm"},
	".mov":  {timeline.KindVideo, "video/quicktime"},
	".mp3":  {timeline.KindAudio, "audio/mpeg"},
	".wav":  {timeline.KindAudio, "audio/wav"},
	".m4a":  {timeline.KindAudio, "audio/mp4"},
	".ogg":  {timeline.KindAudio, "audio/ogg"},
	".aac":  {timeline.KindAudio, "audio/aac"},
	".png":  {timeline.KindImage, "image/png"},
	".jpg":  {timeline.KindImage, "image/jpeg"},
	".jpeg": {timeline.KindImage, "image/jpeg"},
	".webp": {timeline.KindImage, "image/webp"},
	".gif":  {timeline.KindImage, "image/gif"},
}

// DetectKind classifies a file by extension. Containers the preview player
// cannot decode (for example .mkv or .avi) are rejected.
func DetectKind(filename string) (timeline.AssetKind, string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	f, ok := formats[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return "", "", &FormatError{Filename: filename, Ext: ext}
	}
	return f.kind, f.mime, nil
}

// FormatError describes a rejected upload.
type FormatError struct {
	Filename string
	Ext      string
}

func (e *FormatError) Error() string {
	return "unsupported media format " + e.Ext + " for " + e.Filename
}

func (e *FormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// SupportedExtensions lists accepted extensions, for error messages and the UI.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
