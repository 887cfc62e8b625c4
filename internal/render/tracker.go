package render

import (
	"math"
	"sync"
	"time"
)

// Tracker folds progress reports for one job into a monotonic Progress.
// Percentage never decreases, and once the job is complete or failed every
// further report is ignored. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	progress Progress
	onChange func(Progress)
	done     chan struct{}
	now      func() time.Time
}

// NewTracker starts a pending tracker. onChange, if set, is called with the
// new state after every accepted report, outside the tracker's lock.
func NewTracker(jobID string, onChange func(Progress)) *Tracker {
	t := &Tracker{
		onChange: onChange,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	t.progress = Progress{JobID: jobID, State: StatePending, UpdatedAt: t.now().UTC()}
	return t
}

func newJobTracker(job *Job, onChange func(Progress)) *Tracker {
	t := NewTracker(job.ID, onChange)
	t.progress.ProjectID = job.ProjectID
	return t
}

// Update records a non-terminal report. It returns false if the report was ignored.
func (t *Tracker) Update(percentage float64, stage string) bool {
	return t.apply(func(p *Progress) bool {
		pct := clampPercent(percentage)
		if pct < p.Percentage {
			pct = p.Percentage
		}
		if pct == p.Percentage && stage == p.Stage && p.State == StateRunning {
			return false
		}
		p.State = StateRunning
		p.Percentage = pct
		if stage != "" {
			p.Stage = stage
		}
		return true
	})
}

func (t *Tracker) Complete(downloadURL string) bool {
	return t.apply(func(p *Progress) bool {
		p.State = StateComplete
		p.Percentage = 100
		p.Stage = "complete"
		p.DownloadURL = downloadURL
		return true
	})
}

func (t *Tracker) Fail(reason string) bool {
	return t.apply(func(p *Progress) bool {
		p.State = StateFailed
		p.Stage = "failed"
		p.Error = reason
		return true
	})
}

func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Done is closed when the job reaches a terminal state.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

func (t *Tracker) apply(fn func(p *Progress) bool) bool {
	t.mu.Lock()
	if t.progress.State.Terminal() {
		t.mu.Unlock()
		return false
	}
	next := t.progress
	if !fn(&next) {
		t.mu.Unlock()
		return false
	}
	next.UpdatedAt = t.now().UTC()
	t.progress = next
	if next.State.Terminal() {
		close(t.done)
	}
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(next)
	}
	return true
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
