package project

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) (*db.DB, *SQLiteRepository) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database, NewRepository(database.Conn())
}

type failingPlatform struct {
	cloud.StubClient
	saveErr error
}

func (p *failingPlatform) SaveTimeline(ctx context.Context, id string, doc timeline.Document) error {
	return p.saveErr
}

func seedAsset(t *testing.T, repo *SQLiteRepository, id string, dur float64) timeline.Asset {
	t.Helper()
	rec := &assets.Record{
		Asset:     timeline.Asset{ID: id, Kind: timeline.KindVideo, URL: "/media/" + id, DurationSeconds: dur, Name: id},
		Path:      "/data/" + id + ".mp4",
		SizeBytes: 100,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.CreateAsset(context.Background(), rec); err != nil {
		t.Fatalf("CreateAsset() error = %v", err)
	}
	return rec.Asset
}

func TestService_CreateAndOpen(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())
	ctx := context.Background()

	id, err := svc.CreateProject(ctx, "  ", "first cut")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	p, tl, err := svc.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.Name != DefaultName {
		t.Errorf("name = %q, want %q", p.Name, DefaultName)
	}
	if p.Description != "first cut" {
		t.Errorf("description = %q", p.Description)
	}
	if tl.Len() != 0 {
		t.Errorf("new project has %d clips, want 0", tl.Len())
	}
	if p.Settings != render.DefaultSettings {
		t.Errorf("settings = %+v, want defaults", p.Settings)
	}
}

func TestService_SaveTimelineRoundTrip(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()
	a1 := seedAsset(t, repo, "a1", 10)
	a2 := seedAsset(t, repo, "a2", 5)

	lookup := func(id string) (timeline.Asset, bool) {
		switch id {
		case "a1":
			return a1, true
		case "a2":
			return a2, true
		}
		return timeline.Asset{}, false
	}
	svc := NewService(repo, cloud.NewStubClient(testLogger()), lookup, testLogger())

	id, err := svc.CreateProject(ctx, "Trailer", "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	tl := timeline.New()
	c1, _ := tl.AppendClip(a1)
	tl.AppendClip(a2)
	tl.SplitClip(c1.ID, 4)
	tl.AddAudioTrack(a2, 2)

	for i := 0; i < 2; i++ {
		if err := svc.SaveTimeline(ctx, id, tl.Document()); err != nil {
			t.Fatalf("SaveTimeline() #%d error = %v", i, err)
		}
	}

	p, reopened, err := svc.Open(ctx, id)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if reopened.Len() != 3 {
		t.Fatalf("reopened clips = %d, want 3", reopened.Len())
	}
	if reopened.TotalDuration() != 15 {
		t.Errorf("total duration = %v, want 15", reopened.TotalDuration())
	}
	if len(reopened.AudioTracks()) != 1 {
		t.Errorf("audio tracks = %d, want 1", len(reopened.AudioTracks()))
	}
	if len(p.AssetIDs) != 2 {
		t.Errorf("asset refs = %v, want a1 and a2", p.AssetIDs)
	}
	if p.Revision != 2 {
		t.Errorf("revision = %d, want 2", p.Revision)
	}
}

func TestService_SaveRejectsInvalidTimeline(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())
	ctx := context.Background()

	id, _ := svc.CreateProject(ctx, "P", "")
	bad := timeline.Document{Clips: []timeline.Clip{{ID: "c1", DurationSeconds: 2, StartTime: 1}}}

	err := svc.SaveTimeline(ctx, id, bad)
	if !errors.Is(err, timeline.ErrInvalidClip) {
		t.Fatalf("SaveTimeline() error = %v, want ErrInvalidClip", err)
	}
}

func TestService_SaveUnknownProject(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())

	err := svc.SaveTimeline(context.Background(), "missing", timeline.Document{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveTimeline() error = %v, want ErrNotFound", err)
	}
}

func TestService_PlatformFailurePropagates(t *testing.T) {
	_, repo := setupTestDB(t)
	platform := &failingPlatform{StubClient: *cloud.NewStubClient(testLogger()), saveErr: &cloud.APIError{Op: "save timeline", StatusCode: 503}}
	svc := NewService(repo, platform, nil, testLogger())
	ctx := context.Background()

	id, err := svc.CreateProject(ctx, "P", "")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := svc.SaveTimeline(ctx, id, timeline.Document{}); !cloud.IsRetryable(err) {
		t.Fatalf("SaveTimeline() error = %v, want retryable platform error", err)
	}
}

func TestService_OpenMissing(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())

	if _, _, err := svc.Open(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestService_OpenRejectsCorruptTimeline(t *testing.T) {
	database, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())
	ctx := context.Background()

	id, _ := svc.CreateProject(ctx, "P", "")
	_, err := database.Conn().Exec(`UPDATE projects SET timeline_data = ? WHERE id = ?`,
		`{"clips":[{"id":"c1","durationSeconds":-1}],"audioTracks":[]}`, id)
	if err != nil {
		t.Fatalf("corrupt timeline: %v", err)
	}

	if _, _, err := svc.Open(ctx, id); !errors.Is(err, timeline.ErrInvalidClip) {
		t.Fatalf("Open() error = %v, want ErrInvalidClip", err)
	}
}

func TestService_ListAndDelete(t *testing.T) {
	_, repo := setupTestDB(t)
	svc := NewService(repo, cloud.NewStubClient(testLogger()), nil, testLogger())
	ctx := context.Background()

	id1, _ := svc.CreateProject(ctx, "One", "")
	svc.CreateProject(ctx, "Two", "")

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() = %d projects, want 2", len(list))
	}

	if err := svc.Delete(ctx, id1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
