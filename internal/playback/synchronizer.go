// Package playback maps the global play-head onto the clip under it and keeps
// a single media source pointed at the right file and position.
package playback

import (
	"io"
	"log/slog"
	"math"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// DefaultDriftThreshold is how far the element may wander from the expected
// source position (in seconds) before a hard seek is forced.
const DefaultDriftThreshold = 0.5

// EDL is the read side of the timeline the synchronizer needs.
type EDL interface {
	Locate(globalTime float64) (timeline.Clip, bool)
	Clip(id string) (timeline.Clip, bool)
}

type State struct {
	GlobalTime   float64 `json:"globalTime"`
	IsPlaying    bool    `json:"isPlaying"`
	ActiveClipID string  `json:"activeClipId,omitempty"`
}

// Synchronizer is the only writer of its MediaSource. It is not safe for
// concurrent use; the owning session serialises calls.
type Synchronizer struct {
	src    MediaSource
	edl    EDL
	logger *slog.Logger

	driftThreshold float64
	loadedURL      string
	state          State
}

func NewSynchronizer(src MediaSource, edl EDL, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synchronizer{
		src:            src,
		edl:            edl,
		logger:         logger,
		driftThreshold: DefaultDriftThreshold,
	}
}

// SetDriftThreshold overrides DefaultDriftThreshold. Non-positive values are ignored.
func (s *Synchronizer) SetDriftThreshold(seconds float64) {
	if seconds > 0 {
		s.driftThreshold = seconds
	}
}

func (s *Synchronizer) State() State {
	return s.state
}

func (s *Synchronizer) Play() {
	if s.state.IsPlaying {
		return
	}
	s.state.IsPlaying = true
	s.reconcile()
	if s.state.IsPlaying {
		s.src.Play()
	}
}

func (s *Synchronizer) Pause() {
	if !s.state.IsPlaying {
		return
	}
	s.state.IsPlaying = false
	s.src.Pause()
}

// Seek moves the play-head without touching play/pause state.
func (s *Synchronizer) Seek(globalTime float64) {
	if globalTime < 0 || math.IsNaN(globalTime) {
		globalTime = 0
	}
	s.state.GlobalTime = globalTime
	s.reconcile()
}

// Refresh re-evaluates the play-head after the EDL changed under it.
func (s *Synchronizer) Refresh() {
	s.reconcile()
}

// OnTimeUpdate handles a progress callback from the media element. While
// playing it is the only thing that advances the play-head.
func (s *Synchronizer) OnTimeUpdate(elementTime float64) {
	if !s.state.IsPlaying || s.state.ActiveClipID == "" {
		return
	}
	clip, ok := s.edl.Clip(s.state.ActiveClipID)
	if !ok {
		s.reconcile()
		return
	}
	s.state.GlobalTime = clip.GlobalTime(elementTime)
	s.reconcile()
}

// OnEnded handles the element running out of source media. Playback continues
// at the next clip if one starts where the active clip ends.
func (s *Synchronizer) OnEnded() {
	if s.state.ActiveClipID == "" {
		return
	}
	clip, ok := s.edl.Clip(s.state.ActiveClipID)
	if !ok {
		s.reconcile()
		return
	}

	next := clip.End()
	if _, ok := s.edl.Locate(next); !ok {
		s.stop()
		return
	}
	s.state.GlobalTime = next
	// An ended element has to be reloaded even when the next clip shares its source.
	s.loadedURL = ""
	s.reconcile()
}

func (s *Synchronizer) reconcile() {
	clip, ok := s.edl.Locate(s.state.GlobalTime)
	if !ok {
		if s.state.IsPlaying {
			s.stop()
			return
		}
		s.state.ActiveClipID = ""
		return
	}

	local := clip.LocalTime(s.state.GlobalTime)

	if clip.ID != s.state.ActiveClipID {
		s.state.ActiveClipID = clip.ID
		s.logger.Debug("boundary crossing", "clip_id", clip.ID, "global_time", s.state.GlobalTime, "seek", local)
		// A cut between two clips of one source can be shorter than the drift
		// threshold, so the element is always moved; only the reload is skipped.
		if clip.URL != s.loadedURL {
			s.src.Load(clip.URL)
			s.loadedURL = clip.URL
			s.src.Seek(local)
			if s.state.IsPlaying {
				s.src.Play()
			}
			return
		}
		s.src.Seek(local)
		return
	}

	if math.Abs(s.src.CurrentTime()-local) > s.driftThreshold {
		s.logger.Debug("drift correction", "clip_id", clip.ID, "element_time", s.src.CurrentTime(), "seek", local)
		s.src.Seek(local)
	}
}

// stop halts playback and rewinds to the start instead of freezing on the
// last frame.
func (s *Synchronizer) stop() {
	s.state.IsPlaying = false
	s.state.GlobalTime = 0
	s.state.ActiveClipID = ""
	s.src.Pause()
	s.reconcile()
}
