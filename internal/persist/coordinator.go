// Package persist debounces timeline edits into saves against the project store.
package persist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	DefaultDelay       = 3 * time.Second
	DefaultSaveTimeout = 30 * time.Second
)

// Store is the durable side of a project.
type Store interface {
	CreateProject(ctx context.Context, name, description string) (string, error)
	SaveTimeline(ctx context.Context, projectID string, doc timeline.Document) error
}

type Config struct {
	Store     Store
	Scheduler Scheduler
	Delay     time.Duration

	// Snapshot returns the document to persist. It is called on the
	// coordinator's owning goroutine.
	Snapshot func() timeline.Document

	// Dispatch runs f on the owning goroutine. Timer expiry and save
	// completion are funnelled through it. Defaults to calling f inline.
	Dispatch func(f func())

	// Go runs save I/O off the owning goroutine. Defaults to a new goroutine.
	Go func(f func())

	ProjectID          string
	ProjectName        string
	ProjectDescription string

	SaveTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

type Status struct {
	ProjectID   string     `json:"projectId,omitempty"`
	Dirty       bool       `json:"dirty"`
	Saving      bool       `json:"saving"`
	LastSavedAt *time.Time `json:"lastSavedAt,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
}

type attempt struct {
	revision  uint64
	projectID string
	created   bool
	err       error
	done      chan struct{}
}

// Coordinator owns the dirty flag of one open project. At most one save is in
// flight; edits made while saving are picked up by a follow-up save.
// Apart from Shutdown's wait, every method must be called from the owning
// goroutine (the one Dispatch delivers to).
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	projectID   string
	revision    uint64
	dirty       bool
	pending     bool
	closed      bool
	lastSavedAt *time.Time
	lastErr     error

	timer    Timer
	timerGen uint64
	inflight *attempt
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Scheduler == nil {
		cfg.Scheduler = RealScheduler()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { f() }
	}
	if cfg.Go == nil {
		cfg.Go = func(f func()) { go f() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		cfg:       cfg,
		logger:    logger.With("component", "persist"),
		projectID: cfg.ProjectID,
	}
}

// MarkDirty records an edit and restarts the debounce window.
func (c *Coordinator) MarkDirty() {
	if c.closed {
		return
	}
	c.revision++
	c.dirty = true
	c.stopTimer()

	c.timerGen++
	gen := c.timerGen
	c.timer = c.cfg.Scheduler.AfterFunc(c.cfg.Delay, func() {
		c.cfg.Dispatch(func() { c.onTimer(gen) })
	})
}

// Flush saves now instead of waiting for the debounce window. A project that
// has never been saved is created even when nothing was edited.
func (c *Coordinator) Flush() {
	if c.closed {
		return
	}
	c.stopTimer()
	if !c.dirty && c.projectID != "" {
		return
	}
	if c.inflight != nil {
		c.pending = true
		return
	}
	c.start()
}

func (c *Coordinator) Status() Status {
	st := Status{
		ProjectID:   c.projectID,
		Dirty:       c.dirty,
		Saving:      c.inflight != nil,
		LastSavedAt: c.lastSavedAt,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

func (c *Coordinator) ProjectID() string {
	return c.projectID
}

func (c *Coordinator) Dirty() bool {
	return c.dirty
}

// Shutdown cancels the debounce timer, waits for an in-flight save and writes
// any remaining edits synchronously. The coordinator ignores later calls.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.stopTimer()
	c.pending = false

	if a := c.inflight; a != nil {
		select {
		case <-a.done:
			c.apply(a)
		case <-ctx.Done():
			return fmt.Errorf("wait for in-flight save: %w", ctx.Err())
		}
	}

	if !c.dirty {
		return nil
	}
	a := &attempt{revision: c.revision, done: make(chan struct{})}
	c.inflight = a
	c.run(ctx, a, c.projectID, c.cfg.Snapshot())
	close(a.done)
	c.apply(a)
	return a.err
}

func (c *Coordinator) onTimer(gen uint64) {
	if gen != c.timerGen {
		return
	}
	c.timer = nil
	c.Flush()
}

func (c *Coordinator) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

func (c *Coordinator) start() {
	a := &attempt{revision: c.revision, done: make(chan struct{})}
	c.inflight = a
	doc := c.cfg.Snapshot()
	projectID := c.projectID

	c.logger.Debug("save started", "project_id", projectID, "revision", a.revision, "clips", len(doc.Clips))

	c.cfg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SaveTimeout)
		defer cancel()
		c.run(ctx, a, projectID, doc)
		close(a.done)
		c.cfg.Dispatch(func() { c.finish(a) })
	})
}

// run performs the store I/O for one attempt. It touches only a.
func (c *Coordinator) run(ctx context.Context, a *attempt, projectID string, doc timeline.Document) {
	if projectID == "" {
		id, err := c.cfg.Store.CreateProject(ctx, c.cfg.ProjectName, c.cfg.ProjectDescription)
		if err != nil {
			a.err = fmt.Errorf("create project: %w", err)
			return
		}
		projectID = id
		a.created = true
	}
	a.projectID = projectID

	if err := c.cfg.Store.SaveTimeline(ctx, projectID, doc); err != nil {
		a.err = fmt.Errorf("save timeline: %w", err)
	}
}

func (c *Coordinator) finish(a *attempt) {
	if c.inflight != a {
		return
	}
	c.apply(a)
	if c.pending {
		c.pending = false
		if c.dirty {
			c.start()
		}
	}
}

func (c *Coordinator) apply(a *attempt) {
	c.inflight = nil
	if a.projectID != "" && c.projectID == "" {
		c.projectID = a.projectID
	}
	if a.created {
		c.logger.Info("project created", "project_id", a.projectID)
	}

	if a.err != nil {
		c.lastErr = a.err
		c.logger.Error("save failed", "project_id", c.projectID, "revision", a.revision, "error", a.err)
		return
	}

	now := c.cfg.Now()
	c.lastSavedAt = &now
	c.lastErr = nil
	if c.revision == a.revision {
		c.dirty = false
	}
	c.logger.Info("project saved", "project_id", c.projectID, "revision", a.revision, "dirty", c.dirty)
}
