package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Summary, error)
	SaveTimeline(ctx context.Context, id string, doc timeline.Document) error
	UpdateSettings(ctx context.Context, id string, s render.Settings) error
	DeleteProject(ctx context.Context, id string) error

	assets.Store
	render.JobStore
	ListExportJobs(ctx context.Context, projectID string) ([]render.Progress, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	data, err := timeline.Marshal(p.Timeline)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, timeline_data, settings, revision, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, p.ID, p.Name, nullString(p.Description), string(data), string(settings),
		p.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, timeline_data, settings, revision, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	var p Project
	var description, settings sql.NullString
	var data, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &description, &data, &settings, &p.Revision, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	if p.Timeline, err = timeline.Unmarshal([]byte(data)); err != nil {
		return nil, fmt.Errorf("project %s: %w", id, err)
	}
	if settings.Valid && settings.String != "" {
		if err := json.Unmarshal([]byte(settings.String), &p.Settings); err != nil {
			return nil, fmt.Errorf("project %s: decode settings: %w", id, err)
		}
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)

	rows, err := r.db.QueryContext(ctx, "SELECT asset_id FROM project_assets WHERE project_id = ? ORDER BY asset_id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	p.AssetIDs = []string{}
	for rows.Next() {
		var assetID string
		if err := rows.Scan(&assetID); err != nil {
			return nil, err
		}
		p.AssetIDs = append(p.AssetIDs, assetID)
	}
	return &p, rows.Err()
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, timeline_data, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		var s Summary
		var description sql.NullString
		var data, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &description, &data, &updatedAt); err != nil {
			return nil, err
		}
		s.Description = description.String
		if doc, err := timeline.Unmarshal([]byte(data)); err == nil {
			s.ClipCount = len(doc.Clips)
		}
		s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// SaveTimeline overwrites the project's timeline and its asset references in
// one transaction. Saving the same document twice leaves the same state.
func (r *SQLiteRepository) SaveTimeline(ctx context.Context, id string, doc timeline.Document) error {
	data, err := timeline.Marshal(doc)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE projects SET timeline_data = ?, revision = revision + 1, updated_at = ?
			WHERE id = ?
		`, string(data), time.Now().UTC().Format(time.RFC3339Nano), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM project_assets WHERE project_id = ?", id); err != nil {
			return err
		}
		for _, assetID := range doc.AssetIDs() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO project_assets (project_id, asset_id)
				SELECT ?, id FROM assets WHERE id = ?
			`, id, assetID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) UpdateSettings(ctx context.Context, id string, s render.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, "UPDATE projects SET settings = ? WHERE id = ?", string(data), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateAsset(ctx context.Context, a *assets.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assets (id, kind, name, url, path, mime_type, size_bytes, checksum, duration_seconds, remote_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, string(a.Kind), a.Name, a.URL, nullString(a.Path), nullString(a.MimeType), a.SizeBytes,
		nullString(a.Checksum), a.DurationSeconds, nullString(a.RemoteID), a.CreatedAt.Format(time.RFC3339Nano))
	return err
}

const assetColumns = `id, kind, name, url, path, mime_type, size_bytes, checksum, duration_seconds, remote_id, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*assets.Record, error) {
	var a assets.Record
	var kind, createdAt string
	var path, mimeType, checksum, remoteID sql.NullString

	if err := row.Scan(&a.ID, &kind, &a.Name, &a.URL, &path, &mimeType, &a.SizeBytes, &checksum,
		&a.DurationSeconds, &remoteID, &createdAt); err != nil {
		return nil, err
	}
	a.Kind = timeline.AssetKind(kind)
	a.Path = path.String
	a.MimeType = mimeType.String
	a.Checksum = checksum.String
	a.RemoteID = remoteID.String
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) GetAsset(ctx context.Context, id string) (*assets.Record, error) {
	a, err := scanAsset(r.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteRepository) ListAssets(ctx context.Context) ([]*assets.Record, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*assets.Record
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// TotalAssetBytes counts locally stored bytes only; library imports live on
// the platform.
func (r *SQLiteRepository) TotalAssetBytes(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(size_bytes), 0) FROM assets WHERE path IS NOT NULL").Scan(&total)
	return total, err
}

func (r *SQLiteRepository) CreateExportJob(ctx context.Context, job *render.Job, p render.Progress) error {
	data, err := timeline.Marshal(job.Timeline)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, project_id, resolution, format, timeline_data, total_duration,
			state, percentage, stage, download_url, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.ProjectID, job.Settings.Resolution, job.Settings.Format, string(data), job.TotalDuration,
		string(p.State), p.Percentage, nullString(p.Stage), nullString(p.DownloadURL), nullString(p.Error),
		job.CreatedAt.Format(time.RFC3339Nano), p.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) UpdateExportJob(ctx context.Context, p render.Progress) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET state = ?, percentage = ?, stage = ?, download_url = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(p.State), p.Percentage, nullString(p.Stage), nullString(p.DownloadURL), nullString(p.Error),
		p.UpdatedAt.Format(time.RFC3339Nano), p.JobID)
	return err
}

func (r *SQLiteRepository) GetExportJob(ctx context.Context, id string) (*render.Job, *render.Progress, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, resolution, format, timeline_data, total_duration,
			state, percentage, stage, download_url, error, created_at, updated_at
		FROM export_jobs WHERE id = ?
	`, id)

	var job render.Job
	var p render.Progress
	var data, state, createdAt, updatedAt string
	var stage, downloadURL, errMsg sql.NullString

	err := row.Scan(&job.ID, &job.ProjectID, &job.Settings.Resolution, &job.Settings.Format, &data, &job.TotalDuration,
		&state, &p.Percentage, &stage, &downloadURL, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if job.Timeline, err = timeline.Unmarshal([]byte(data)); err != nil {
		return nil, nil, fmt.Errorf("export job %s: %w", id, err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)

	p.JobID = job.ID
	p.ProjectID = job.ProjectID
	p.State = render.State(state)
	p.Stage = stage.String
	p.DownloadURL = downloadURL.String
	p.Error = errMsg.String
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &job, &p, nil
}

func (r *SQLiteRepository) ListExportJobs(ctx context.Context, projectID string) ([]render.Progress, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, state, percentage, stage, download_url, error, updated_at
		FROM export_jobs WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []render.Progress
	for rows.Next() {
		p := render.Progress{ProjectID: projectID}
		var state, updatedAt string
		var stage, downloadURL, errMsg sql.NullString
		if err := rows.Scan(&p.JobID, &state, &p.Percentage, &stage, &downloadURL, &errMsg, &updatedAt); err != nil {
			return nil, err
		}
		p.State = render.State(state)
		p.Stage = stage.String
		p.DownloadURL = downloadURL.String
		p.Error = errMsg.String
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
