package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrMediaNotFound is returned by a MediaResolver for unknown asset ids.
var ErrMediaNotFound = errors.New("media not found")

// MediaResolver maps an asset id to the local file holding its bytes.
type MediaResolver interface {
	MediaPath(assetID string) (string, error)
}

// MediaServer streams asset files to the preview player. Byte ranges and
// conditional requests are handled by http.ServeContent so the element can
// seek without downloading the whole file.
type MediaServer struct {
	resolver MediaResolver
	logger   *slog.Logger
}

func NewMediaServer(resolver MediaResolver, logger *slog.Logger) *MediaServer {
	return &MediaServer{resolver: resolver, logger: logger}
}

func (s *MediaServer) ServeAsset(w http.ResponseWriter, r *http.Request, assetID string) error {
	path, err := s.resolver.MediaPath(assetID)
	if errors.Is(err, ErrMediaNotFound) {
		http.Error(w, "media not found", http.StatusNotFound)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve media %s: %w", assetID, err)
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("media file missing", "asset_id", assetID, "path", path)
			http.Error(w, "media not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open media: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat media: %w", err)
	}

	w.Header().Set("Content-Type", contentType(path))
	w.Header().Set("Accept-Ranges", "bytes")

	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	return nil
}

var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
}

// contentType prefers the fixed media table; the system mime database is not
// guaranteed to know video extensions.
func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
