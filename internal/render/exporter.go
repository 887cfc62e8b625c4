package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultMaxFailures  = 5
)

// JobStore persists export jobs so their status survives a restart.
type JobStore interface {
	CreateExportJob(ctx context.Context, job *Job, p Progress) error
	UpdateExportJob(ctx context.Context, p Progress) error
	GetExportJob(ctx context.Context, jobID string) (*Job, *Progress, error)
}

type ExporterOptions struct {
	PollInterval time.Duration
	// MaxFailures is how many consecutive status-poll errors fail the job.
	MaxFailures int
	Logger      *slog.Logger
}

// Exporter dispatches jobs to the render service and polls them to a
// terminal state in the background. Export failures are recorded on the job
// and never returned to the editor as errors.
type Exporter struct {
	client       cloud.Renderer
	store        JobStore
	logger       *slog.Logger
	pollInterval time.Duration
	maxFailures  int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewExporter(client cloud.Renderer, store JobStore, opts ExporterOptions) *Exporter {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Exporter{
		client:       client,
		store:        store,
		logger:       logger.With("component", "export"),
		pollInterval: opts.PollInterval,
		maxFailures:  opts.MaxFailures,
		ctx:          ctx,
		cancel:       cancel,
		trackers:     make(map[string]*Tracker),
	}
}

// Start builds a job from doc and dispatches it. Only invalid requests
// return an error; dispatch failures show up as a failed job.
func (e *Exporter) Start(ctx context.Context, projectID string, settings Settings, doc timeline.Document) (*Job, error) {
	job, err := BuildJob(projectID, settings, doc)
	if err != nil {
		return nil, err
	}

	tracker := newJobTracker(job, e.persist)
	if err := e.store.CreateExportJob(ctx, job, tracker.Progress()); err != nil {
		return nil, fmt.Errorf("record export job: %w", err)
	}

	e.mu.Lock()
	e.trackers[job.ID] = tracker
	e.mu.Unlock()

	e.logger.Info("export job created", "job_id", job.ID, "project_id", projectID,
		"resolution", job.Settings.Resolution, "format", job.Settings.Format,
		"clips", len(job.Timeline.Clips), "duration", job.TotalDuration)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(job, tracker)
	}()
	return job, nil
}

// Progress returns the live state of a job, falling back to the store for
// jobs started before the last restart.
func (e *Exporter) Progress(ctx context.Context, jobID string) (Progress, error) {
	e.mu.Lock()
	tracker, ok := e.trackers[jobID]
	e.mu.Unlock()
	if ok {
		return tracker.Progress(), nil
	}

	_, p, err := e.store.GetExportJob(ctx, jobID)
	if err != nil {
		return Progress{}, fmt.Errorf("load export job: %w", err)
	}
	if p == nil {
		return Progress{}, ErrJobNotFound
	}
	return *p, nil
}

// Tracker returns the live tracker for a job started by this process that
// has not finished yet.
func (e *Exporter) Tracker(jobID string) (*Tracker, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trackers[jobID]
	return t, ok
}

// Close stops all pollers. Jobs still running are left as they are in the
// store and marked interrupted on the next start.
func (e *Exporter) Close() {
	e.cancel()
	e.wg.Wait()
}

func (e *Exporter) run(job *Job, tracker *Tracker) {
	logger := e.logger.With("job_id", job.ID)
	defer func() {
		// Finished jobs are served from the store.
		if tracker.Progress().State.Terminal() {
			e.mu.Lock()
			delete(e.trackers, job.ID)
			e.mu.Unlock()
		}
	}()

	handle, err := e.client.RequestExport(e.ctx, cloud.ExportRequest{
		JobID:         job.ID,
		ProjectID:     job.ProjectID,
		Resolution:    job.Settings.Resolution,
		Format:        job.Settings.Format,
		Timeline:      job.Timeline,
		TotalDuration: job.TotalDuration,
	})
	if err != nil {
		if e.ctx.Err() != nil {
			return
		}
		logger.Error("export dispatch failed", "error", err)
		tracker.Fail(dispatchError(err))
		return
	}
	tracker.Update(0, "queued")

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := e.client.ExportStatus(e.ctx, handle.ID)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			failures++
			logger.Warn("export status poll failed", "error", err, "failures", failures)
			if failures >= e.maxFailures || !cloud.IsRetryable(err) {
				tracker.Fail(fmt.Sprintf("lost contact with render service: %v", err))
				return
			}
			continue
		}
		failures = 0

		if e.apply(tracker, status) {
			p := tracker.Progress()
			logger.Info("export finished", "state", p.State, "download_url", p.DownloadURL, "error", p.Error)
			return
		}
	}
}

// apply folds a remote status into the tracker and reports whether the job is done.
func (e *Exporter) apply(tracker *Tracker, status *cloud.ExportStatus) bool {
	switch status.State {
	case "complete", "completed", "done":
		tracker.Complete(status.DownloadURL)
	case "failed", "error":
		reason := status.Error
		if reason == "" {
			reason = "render failed"
		}
		tracker.Fail(reason)
	default:
		tracker.Update(status.Percentage, status.Stage)
	}
	return tracker.Progress().State.Terminal()
}

func (e *Exporter) persist(p Progress) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.UpdateExportJob(ctx, p); err != nil {
		e.logger.Error("failed to persist export progress", "job_id", p.JobID, "error", err)
	}
}

func dispatchError(err error) string {
	if errors.Is(err, cloud.ErrNotConfigured) {
		return "render service not configured"
	}
	return fmt.Sprintf("export request failed: %v", err)
}
