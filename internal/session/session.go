// Package session runs editor sessions. Each session owns a timeline, a
// playback synchronizer, a save coordinator and the active tool, and runs
// one goroutine that applies every command and callback in arrival order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/persist"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrClosed   = errors.New("session closed")
	ErrNotFound = errors.New("session not found")
)

// commandBuffer bounds how many callbacks may queue up behind a slow command.
const commandBuffer = 64

// ProjectStore is the project side a session saves to and opens from.
type ProjectStore interface {
	persist.Store
	Open(ctx context.Context, id string) (*project.Project, *timeline.Timeline, error)
	RememberSettings(ctx context.Context, id string, settings render.Settings) error
}

type Exporter interface {
	Start(ctx context.Context, projectID string, settings render.Settings, doc timeline.Document) (*render.Job, error)
	Progress(ctx context.Context, jobID string) (render.Progress, error)
}

// Deps are shared by every session of a Manager.
type Deps struct {
	Assets   timeline.AssetLookup
	Projects ProjectStore
	Exporter Exporter

	Scheduler      persist.Scheduler
	AutosaveDelay  time.Duration
	DriftThreshold time.Duration

	// MediaPath maps an asset id to the file name written into EDL exports.
	MediaPath render.MediaPathFunc
	Logger    *slog.Logger
}

// State is a consistent snapshot of a session, taken on its loop.
type State struct {
	ID            string            `json:"id"`
	ProjectName   string            `json:"projectName"`
	Timeline      timeline.Document `json:"timeline"`
	TotalDuration float64           `json:"totalDuration"`
	playback.State
	Tool     Tool               `json:"tool"`
	Persist  persist.Status     `json:"persistence"`
	Media    playback.Directive `json:"media"`
	Settings render.Settings    `json:"exportSettings"`
}

// Session is one open editor. All exported methods are safe for concurrent
// use; they queue work onto the session goroutine and wait for it.
type Session struct {
	id     string
	deps   Deps
	logger *slog.Logger

	cmds     chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// projectID mirrors the save coordinator's project id for readers
	// outside the loop.
	projectID atomic.Value

	// Owned by the loop goroutine.
	name     string
	tl       *timeline.Timeline
	src      *playback.RemoteSource
	sync     *playback.Synchronizer
	saver    *persist.Coordinator
	tool     Tool
	settings render.Settings
}

type openParams struct {
	projectID   string
	name        string
	description string
	tl          *timeline.Timeline
	settings    render.Settings
}

func newSession(deps Deps, p openParams) *Session {
	id := uuid.NewString()
	logger := logging.WithSessionID(logging.OrDiscard(deps.Logger), id)

	tl := p.tl
	if tl == nil {
		tl = timeline.New()
	}
	name := strings.TrimSpace(p.name)
	if name == "" {
		name = project.DefaultName
	}
	settings := p.settings
	if settings.Resolution == "" && settings.Format == "" {
		settings = render.DefaultSettings
	}

	s := &Session{
		id:       id,
		deps:     deps,
		logger:   logger,
		cmds:     make(chan func(), commandBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		name:     name,
		tl:       tl,
		src:      playback.NewRemoteSource(),
		tool:     ToolSelect,
		settings: settings,
	}

	s.sync = playback.NewSynchronizer(s.src, tl, logging.WithComponent(logger, "playback"))
	if deps.DriftThreshold > 0 {
		s.sync.SetDriftThreshold(deps.DriftThreshold.Seconds())
	}

	s.saver = persist.NewCoordinator(persist.Config{
		Store:              deps.Projects,
		Scheduler:          deps.Scheduler,
		Delay:              deps.AutosaveDelay,
		Snapshot:           tl.Document,
		Dispatch:           s.post,
		ProjectID:          p.projectID,
		ProjectName:        name,
		ProjectDescription: p.description,
		Logger:             logger,
	})

	// Show the first frame of an opened project.
	s.sync.Seek(0)
	s.projectID.Store(p.projectID)

	go s.loop()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// ProjectID is the id of the saved project, or "" before the first save.
func (s *Session) ProjectID() string {
	id, _ := s.projectID.Load().(string)
	return id
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case f := <-s.cmds:
			f()
			s.projectID.Store(s.saver.ProjectID())
		}
	}
}

// post queues f without waiting for it. Work posted after Close is dropped.
func (s *Session) post(f func()) {
	select {
	case s.cmds <- f:
	case <-s.quit:
	}
}

// Do runs fn on the session goroutine and returns its error.
func (s *Session) Do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.cmds <- func() { errc <- fn() }:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-s.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot of the session.
func (s *Session) State(ctx context.Context) (State, error) {
	var st State
	err := s.Do(ctx, func() error {
		st = s.snapshot()
		return nil
	})
	return st, err
}

func (s *Session) snapshot() State {
	doc := s.tl.Document()
	return State{
		ID:            s.id,
		ProjectName:   s.name,
		Timeline:      doc,
		TotalDuration: doc.TotalDuration(),
		State:         s.sync.State(),
		Tool:          s.tool,
		Persist:       s.saver.Status(),
		Media:         s.src.Directive(),
		Settings:      s.settings,
	}
}

// mutate runs an edit and, if it changed the timeline, lets the synchronizer
// and the save coordinator observe it.
func (s *Session) mutate(ctx context.Context, fn func() (bool, error)) (State, error) {
	var st State
	err := s.Do(ctx, func() error {
		changed, err := fn()
		if err != nil {
			return err
		}
		if changed {
			s.sync.Refresh()
			s.saver.MarkDirty()
		}
		st = s.snapshot()
		return nil
	})
	return st, err
}

func (s *Session) asset(id string) (timeline.Asset, error) {
	if s.deps.Assets != nil {
		if a, ok := s.deps.Assets(id); ok {
			return a, nil
		}
	}
	return timeline.Asset{}, fmt.Errorf("%w: %s", assets.ErrNotFound, id)
}

func (s *Session) AppendClip(ctx context.Context, assetID string) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		a, err := s.asset(assetID)
		if err != nil {
			return false, err
		}
		if _, err := s.tl.AppendClip(a); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RemoveClip deletes a clip. A missing clip leaves the timeline untouched and
// is reported as ErrClipNotFound.
func (s *Session) RemoveClip(ctx context.Context, clipID string) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		if !s.tl.RemoveClip(clipID) {
			return false, fmt.Errorf("%w: %s", timeline.ErrClipNotFound, clipID)
		}
		return true, nil
	})
}

// SplitClip cuts a clip at a global time. A time outside the clip is a no-op.
func (s *Session) SplitClip(ctx context.Context, clipID string, at float64) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		if _, ok := s.tl.Clip(clipID); !ok {
			return false, fmt.Errorf("%w: %s", timeline.ErrClipNotFound, clipID)
		}
		_, _, ok := s.tl.SplitClip(clipID, at)
		return ok, nil
	})
}

func (s *Session) MoveClip(ctx context.Context, clipID string, to int) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		if _, ok := s.tl.Clip(clipID); !ok {
			return false, fmt.Errorf("%w: %s", timeline.ErrClipNotFound, clipID)
		}
		return s.tl.MoveClip(clipID, to), nil
	})
}

func (s *Session) AddAudioTrack(ctx context.Context, assetID string, start float64) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		a, err := s.asset(assetID)
		if err != nil {
			return false, err
		}
		if _, err := s.tl.AddAudioTrack(a, start); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (s *Session) RemoveAudioTrack(ctx context.Context, trackID string) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		if !s.tl.RemoveAudioTrack(trackID) {
			return false, fmt.Errorf("%w: %s", timeline.ErrTrackNotFound, trackID)
		}
		return true, nil
	})
}

func (s *Session) SetAudioVolume(ctx context.Context, trackID string, volume float64) (State, error) {
	return s.mutate(ctx, func() (bool, error) {
		if !s.tl.SetAudioVolume(trackID, volume) {
			return false, fmt.Errorf("%w: %s", timeline.ErrTrackNotFound, trackID)
		}
		return true, nil
	})
}

func (s *Session) Seek(ctx context.Context, globalTime float64) (State, error) {
	return s.playback(ctx, func() { s.sync.Seek(globalTime) })
}

func (s *Session) Play(ctx context.Context) (State, error) {
	return s.playback(ctx, s.sync.Play)
}

func (s *Session) Pause(ctx context.Context) (State, error) {
	return s.playback(ctx, s.sync.Pause)
}

// MediaTimeUpdate feeds a time report from the browser player. Reports for
// an outdated directive are dropped.
func (s *Session) MediaTimeUpdate(ctx context.Context, seq uint64, elementTime float64) (State, error) {
	return s.playback(ctx, func() {
		if !s.src.ReportTime(seq, elementTime) {
			s.logger.Debug("stale time report", "seq", seq, "element_time", elementTime)
			return
		}
		s.sync.OnTimeUpdate(elementTime)
	})
}

// MediaEnded reports that the browser player ran out of source media.
func (s *Session) MediaEnded(ctx context.Context, seq uint64) (State, error) {
	return s.playback(ctx, func() {
		if !s.src.IsCurrent(seq) {
			s.logger.Debug("stale ended report", "seq", seq)
			return
		}
		s.sync.OnEnded()
	})
}

func (s *Session) playback(ctx context.Context, fn func()) (State, error) {
	var st State
	err := s.Do(ctx, func() error {
		fn()
		st = s.snapshot()
		return nil
	})
	return st, err
}

// Save starts a save now instead of waiting for the autosave delay.
func (s *Session) Save(ctx context.Context) (State, error) {
	return s.playback(ctx, s.saver.Flush)
}

// StartExport dispatches the current timeline to the render service. The
// project must have been saved at least once.
func (s *Session) StartExport(ctx context.Context, settings render.Settings) (*render.Job, error) {
	if s.deps.Exporter == nil {
		return nil, fmt.Errorf("export: %w", cloud.ErrNotConfigured)
	}

	var (
		projectID string
		doc       timeline.Document
	)
	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	err := s.Do(ctx, func() error {
		projectID = s.saver.ProjectID()
		if projectID == "" {
			return render.ErrNoProject
		}
		doc = s.tl.Document()
		s.settings = settings
		return nil
	})
	if err != nil {
		return nil, err
	}

	job, err := s.deps.Exporter.Start(ctx, projectID, settings, doc)
	if err != nil {
		return nil, err
	}
	if s.deps.Projects != nil {
		if err := s.deps.Projects.RememberSettings(ctx, projectID, settings); err != nil {
			s.logger.Warn("failed to store export settings", "project_id", projectID, "error", err)
		}
	}
	return job, nil
}

// ExportProgress reports on an export of this session's project. Jobs of
// other projects are not found.
func (s *Session) ExportProgress(ctx context.Context, jobID string) (render.Progress, error) {
	if s.deps.Exporter == nil {
		return render.Progress{}, render.ErrJobNotFound
	}
	p, err := s.deps.Exporter.Progress(ctx, jobID)
	if err != nil {
		return render.Progress{}, err
	}
	if projectID := s.ProjectID(); projectID == "" || p.ProjectID != projectID {
		return render.Progress{}, fmt.Errorf("%w: %s", render.ErrJobNotFound, jobID)
	}
	return p, nil
}

// EDL renders the current timeline as a CMX3600 edit decision list.
func (s *Session) EDL(ctx context.Context) (name, body string, err error) {
	err = s.Do(ctx, func() error {
		name = render.EDLFileName(s.name)
		body = render.GenerateEDL(s.tl.Document(), s.name, render.DefaultFrameRate, s.deps.MediaPath)
		return nil
	})
	return name, body, err
}

// Close pauses playback, writes pending edits and stops the session
// goroutine. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	select {
	case <-s.quit:
		return nil
	default:
	}

	err := s.Do(ctx, func() error {
		s.sync.Pause()
		return s.saver.Shutdown(ctx)
	})
	s.stop()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}
