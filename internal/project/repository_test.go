package project

import (
	"context"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func TestRepository_Assets(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	seedAsset(t, repo, "a1", 10)
	imported := &assets.Record{
		Asset:     timeline.Asset{ID: "a2", Kind: timeline.KindAudio, URL: "https://cdn/a2.mp3", DurationSeconds: 3, Name: "a2"},
		SizeBytes: 5000,
		RemoteID:  "lib-7",
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	if err := repo.CreateAsset(ctx, imported); err != nil {
		t.Fatalf("CreateAsset() error = %v", err)
	}

	got, err := repo.GetAsset(ctx, "a2")
	if err != nil || got == nil {
		t.Fatalf("GetAsset() = %v, %v", got, err)
	}
	if got.RemoteID != "lib-7" || got.Kind != timeline.KindAudio || got.Path != "" {
		t.Errorf("GetAsset() = %+v", got)
	}

	missing, err := repo.GetAsset(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetAsset(missing) = %v, %v; want nil, nil", missing, err)
	}

	list, err := repo.ListAssets(ctx)
	if err != nil {
		t.Fatalf("ListAssets() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "a2" {
		t.Errorf("ListAssets() order wrong: %v", list)
	}

	total, err := repo.TotalAssetBytes(ctx)
	if err != nil {
		t.Fatalf("TotalAssetBytes() error = %v", err)
	}
	if total != 100 {
		t.Errorf("TotalAssetBytes() = %d, want 100 (imports excluded)", total)
	}
}

func TestRepository_ExportJobs(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.CreateProject(ctx, &Project{ID: "p1", Name: "P", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	job, err := render.BuildJob("p1", render.Settings{Resolution: "4k", Format: "mov"},
		timeline.Document{Clips: []timeline.Clip{{ID: "c1", DurationSeconds: 2}}})
	if err != nil {
		t.Fatalf("BuildJob() error = %v", err)
	}

	tr := render.NewTracker(job.ID, nil)
	if err := repo.CreateExportJob(ctx, job, tr.Progress()); err != nil {
		t.Fatalf("CreateExportJob() error = %v", err)
	}

	tr.Update(55, "encoding")
	if err := repo.UpdateExportJob(ctx, tr.Progress()); err != nil {
		t.Fatalf("UpdateExportJob() error = %v", err)
	}

	gotJob, gotProgress, err := repo.GetExportJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetExportJob() error = %v", err)
	}
	if gotJob.Settings.Resolution != "4k" || len(gotJob.Timeline.Clips) != 1 {
		t.Errorf("job = %+v", gotJob)
	}
	if gotProgress.State != render.StateRunning || gotProgress.Percentage != 55 || gotProgress.Stage != "encoding" {
		t.Errorf("progress = %+v", gotProgress)
	}
	if gotProgress.ProjectID != "p1" {
		t.Errorf("progress project = %q, want p1", gotProgress.ProjectID)
	}

	list, err := repo.ListExportJobs(ctx, "p1")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListExportJobs() = %v, %v", list, err)
	}
	if list[0].ProjectID != "p1" {
		t.Errorf("listed project = %q, want p1", list[0].ProjectID)
	}

	noJob, noProgress, err := repo.GetExportJob(ctx, "missing")
	if err != nil || noJob != nil || noProgress != nil {
		t.Errorf("GetExportJob(missing) = %v, %v, %v", noJob, noProgress, err)
	}
}

func TestRepository_Config(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, "ui.last_project")
	if err != nil || v != "" {
		t.Fatalf("GetConfig(unset) = %q, %v", v, err)
	}

	repo.SetConfig(ctx, "ui.last_project", "p1")
	repo.SetConfig(ctx, "ui.last_project", "p2")

	v, err = repo.GetConfig(ctx, "ui.last_project")
	if err != nil || v != "p2" {
		t.Fatalf("GetConfig() = %q, %v; want p2", v, err)
	}
}
