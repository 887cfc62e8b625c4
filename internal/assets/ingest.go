package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// MediaURLPrefix is where locally stored assets are served.
const MediaURLPrefix = "/media/"

type IngestConfig struct {
	// QuotaBytes caps the total size of stored assets. Zero or less disables the check.
	QuotaBytes int64
}

// Ingestor turns uploads and library imports into registered assets.
// Format and quota are checked before any bytes reach the network.
type Ingestor struct {
	registry *Registry
	store    Store
	storage  *LocalStorage
	prober   Prober
	platform cloud.Platform
	cfg      IngestConfig
	logger   *slog.Logger
}

func NewIngestor(registry *Registry, store Store, storage *LocalStorage, prober Prober, platform cloud.Platform, cfg IngestConfig, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		registry: registry,
		store:    store,
		storage:  storage,
		prober:   prober,
		platform: platform,
		cfg:      cfg,
		logger:   logger,
	}
}

// CheckQuota fails with ErrQuotaExceeded if adding size bytes would overflow
// the quota. It returns the bytes still available.
func (i *Ingestor) CheckQuota(ctx context.Context, size int64) (int64, error) {
	if i.cfg.QuotaBytes <= 0 {
		return -1, nil
	}
	used, err := i.store.TotalAssetBytes(ctx)
	if err != nil {
		return 0, fmt.Errorf("read storage usage: %w", err)
	}
	remaining := i.cfg.QuotaBytes - used
	if remaining < 0 {
		remaining = 0
	}
	if size > remaining {
		return remaining, fmt.Errorf("%w: %s requested, %s of %s available", ErrQuotaExceeded,
			humanize.Bytes(uint64(size)), humanize.Bytes(uint64(remaining)), humanize.Bytes(uint64(i.cfg.QuotaBytes)))
	}
	return remaining, nil
}

// Upload stores r as a new asset. size is the declared length, or -1 if unknown.
func (i *Ingestor) Upload(ctx context.Context, filename string, size int64, r io.Reader) (*Record, error) {
	kind, mimeType, err := DetectKind(filename)
	if err != nil {
		return nil, err
	}

	declared := size
	if declared < 0 {
		declared = 0
	}
	remaining, err := i.CheckQuota(ctx, declared)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	path, written, checksum, err := i.storage.SaveStream(id+ext, r, remaining)
	if errors.Is(err, ErrQuotaExceeded) {
		return nil, fmt.Errorf("%w: upload is larger than the %s still available", ErrQuotaExceeded, humanize.Bytes(uint64(remaining)))
	}
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Asset: timeline.Asset{
			ID:   id,
			Kind: kind,
			URL:  MediaURLPrefix + id,
			Name: displayName(filename),
		},
		Path:      path,
		MimeType:  mimeType,
		SizeBytes: written,
		Checksum:  checksum,
		CreatedAt: time.Now().UTC(),
	}

	if err := i.fillDuration(ctx, rec); err != nil {
		i.storage.Remove(path)
		return nil, err
	}

	if err := i.mirror(ctx, rec); err != nil {
		i.storage.Remove(path)
		return nil, err
	}

	if err := i.registry.Register(ctx, rec); err != nil {
		i.storage.Remove(path)
		return nil, err
	}

	i.logger.Info("asset uploaded",
		"asset_id", rec.ID,
		"kind", rec.Kind,
		"size", humanize.Bytes(uint64(written)),
		"duration", rec.DurationSeconds,
	)
	return rec, nil
}

// ImportFromLibrary registers a file that already lives in the user's
// platform library. Nothing is stored locally.
func (i *Ingestor) ImportFromLibrary(ctx context.Context, userFileID string) (*Record, error) {
	if strings.TrimSpace(userFileID) == "" {
		return nil, fmt.Errorf("userFileId is required")
	}
	remote, err := i.platform.ImportFromLibrary(ctx, userFileID)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", userFileID, err)
	}

	kind := timeline.AssetKind(remote.Kind)
	mimeType := ""
	if k, m, err := DetectKind(remote.Name); err == nil {
		if kind == "" {
			kind = k
		}
		mimeType = m
	}
	switch kind {
	case timeline.KindVideo, timeline.KindAudio, timeline.KindImage:
	default:
		return nil, fmt.Errorf("%w: library file %s has kind %q", ErrUnsupportedFormat, userFileID, remote.Kind)
	}

	duration := remote.DurationSeconds
	if kind == timeline.KindImage && duration <= 0 {
		duration = DefaultImageDuration
	}
	if duration <= 0 {
		return nil, fmt.Errorf("import %s: platform reported no duration", userFileID)
	}

	rec := &Record{
		Asset: timeline.Asset{
			ID:              uuid.NewString(),
			Kind:            kind,
			URL:             remote.URL,
			DurationSeconds: duration,
			Name:            remote.Name,
		},
		MimeType:  mimeType,
		SizeBytes: remote.SizeBytes,
		RemoteID:  remote.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := i.registry.Register(ctx, rec); err != nil {
		return nil, err
	}

	i.logger.Info("asset imported", "asset_id", rec.ID, "user_file_id", userFileID, "kind", rec.Kind)
	return rec, nil
}

func (i *Ingestor) fillDuration(ctx context.Context, rec *Record) error {
	if rec.Kind == timeline.KindImage {
		rec.DurationSeconds = DefaultImageDuration
		return nil
	}
	res, err := i.prober.Probe(ctx, rec.Path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", rec.Name, err)
	}
	if rec.Kind == timeline.KindVideo && !res.HasVideo {
		return fmt.Errorf("%w: %s has no video stream", ErrUnsupportedFormat, rec.Name)
	}
	rec.DurationSeconds = res.DurationSeconds
	return nil
}

// mirror uploads the stored file to the platform when one is configured and
// points the asset at the platform URL.
func (i *Ingestor) mirror(ctx context.Context, rec *Record) error {
	f, err := os.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("reopen media: %w", err)
	}
	defer f.Close()

	remote, err := i.platform.UploadAsset(ctx, rec.Name, rec.SizeBytes, f)
	if err != nil {
		return fmt.Errorf("upload to platform: %w", err)
	}
	if remote == nil {
		return nil
	}
	rec.RemoteID = remote.ID
	if remote.URL != "" {
		rec.URL = remote.URL
	}
	return nil
}

func displayName(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return base
	}
	return name
}
