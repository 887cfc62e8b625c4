package playback

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

type mapResolver map[string]string

func (m mapResolver) MediaPath(id string) (string, error) {
	p, ok := m[id]
	if !ok {
		return "", ErrMediaNotFound
	}
	return p, nil
}

type failingResolver struct{}

func (failingResolver) MediaPath(string) (string, error) {
	return "", errors.New("db closed")
}

func newMediaFixture(t *testing.T) (*MediaServer, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 256)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMediaServer(mapResolver{"a1": path, "gone": filepath.Join(dir, "missing.mp4")}, logger), path
}

func TestMediaServer_Ranges(t *testing.T) {
	srv, _ := newMediaFixture(t)

	tests := []struct {
		name         string
		rangeHeader  string
		wantStatus   int
		wantLen      int
		wantFirst    byte
		contentRange string
	}{
		{"full file", "", http.StatusOK, 1000, 0, ""},
		{"prefix", "bytes=0-99", http.StatusPartialContent, 100, 0, "bytes 0-99/1000"},
		{"open ended", "bytes=500-", http.StatusPartialContent, 500, byte(500 % 256), "bytes 500-999/1000"},
		{"suffix", "bytes=-100", http.StatusPartialContent, 100, byte(900 % 256), "bytes 900-999/1000"},
		{"unsatisfiable", "bytes=2000-", http.StatusRequestedRangeNotSatisfiable, -1, 0, "bytes */1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/media/a1", nil)
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			rec := httptest.NewRecorder()

			if err := srv.ServeAsset(rec, req, "a1"); err != nil {
				t.Fatalf("ServeAsset() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.contentRange)
			}
			if tt.wantLen < 0 {
				return
			}
			body := rec.Body.Bytes()
			if len(body) != tt.wantLen {
				t.Fatalf("body length = %d, want %d", len(body), tt.wantLen)
			}
			if body[0] != tt.wantFirst {
				t.Errorf("first byte = %d, want %d", body[0], tt.wantFirst)
			}
		})
	}
}

func TestMediaServer_Headers(t *testing.T) {
	srv, _ := newMediaFixture(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/a1", nil)

	if err := srv.ServeAsset(rec, req, "a1"); err != nil {
		t.Fatalf("ServeAsset() error = %v", err)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
}

func TestMediaServer_NotFound(t *testing.T) {
	srv, _ := newMediaFixture(t)

	for _, id := range []string{"unknown", "gone"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
		if err := srv.ServeAsset(rec, req, id); err != nil {
			t.Fatalf("ServeAsset(%s) error = %v", id, err)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("ServeAsset(%s) status = %d, want 404", id, rec.Code)
		}
	}
}

func TestMediaServer_ResolverError(t *testing.T) {
	srv := NewMediaServer(failingResolver{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/x", nil)

	if err := srv.ServeAsset(rec, req, "x"); err == nil {
		t.Fatal("expected resolver error to propagate")
	}
}
