package timeline

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Timeline is the in-memory EDL owned by a single editor session.
// It is not safe for concurrent use; callers serialise access.
type Timeline struct {
	clips []Clip
	audio []AudioTrack
	newID func() string
}

type Option func(*Timeline)

// WithIDFunc overrides clip and track id generation.
func WithIDFunc(fn func() string) Option {
	return func(t *Timeline) {
		t.newID = fn
	}
}

func New(opts ...Option) *Timeline {
	t := &Timeline{
		clips: make([]Clip, 0),
		audio: make([]AudioTrack, 0),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FromDocument loads a persisted document. Start times are re-derived, and
// the result is validated; a document that cannot be made gapless is rejected.
func FromDocument(doc Document, lookup AssetLookup, opts ...Option) (*Timeline, error) {
	t := New(opts...)
	t.clips = append(t.clips, doc.Clips...)
	t.audio = append(t.audio, doc.AudioTracks...)
	for i := range t.audio {
		t.audio[i].Volume = clampVolume(t.audio[i].Volume)
	}
	t.Renormalize()

	if err := Validate(t.Document(), lookup); err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	return t, nil
}

// Document returns a deep copy suitable for persistence or export.
func (t *Timeline) Document() Document {
	return Document{Clips: t.clips, AudioTracks: t.audio}.Clone()
}

func (t *Timeline) Clips() []Clip {
	out := make([]Clip, len(t.clips))
	copy(out, t.clips)
	return out
}

func (t *Timeline) AudioTracks() []AudioTrack {
	out := make([]AudioTrack, len(t.audio))
	copy(out, t.audio)
	return out
}

func (t *Timeline) Len() int {
	return len(t.clips)
}

func (t *Timeline) TotalDuration() float64 {
	var total float64
	for _, c := range t.clips {
		total += c.DurationSeconds
	}
	return total
}

// Clip returns the clip with the given id.
func (t *Timeline) Clip(id string) (Clip, bool) {
	if i := t.indexOf(id); i >= 0 {
		return t.clips[i], true
	}
	return Clip{}, false
}

// Locate returns the clip whose [StartTime, End) span contains globalTime.
// It reports false only past the end of the timeline (or before zero).
func (t *Timeline) Locate(globalTime float64) (Clip, bool) {
	if globalTime < 0 || math.IsNaN(globalTime) {
		return Clip{}, false
	}
	for _, c := range t.clips {
		if c.Contains(globalTime) {
			return c, true
		}
	}
	return Clip{}, false
}

// AppendClip adds a full-length, untrimmed clip of asset at the end of the
// video track.
func (t *Timeline) AppendClip(asset Asset) (Clip, error) {
	if asset.ID == "" {
		return Clip{}, fmt.Errorf("%w: missing id", ErrInvalidAsset)
	}
	if !(asset.DurationSeconds > 0) || math.IsInf(asset.DurationSeconds, 0) {
		return Clip{}, fmt.Errorf("%w: asset %s has duration %v", ErrInvalidClip, asset.ID, asset.DurationSeconds)
	}

	clip := Clip{
		ID:              t.newID(),
		AssetID:         asset.ID,
		URL:             asset.URL,
		DurationSeconds: asset.DurationSeconds,
		StartTime:       t.TotalDuration(),
		Name:            asset.Name,
	}
	t.clips = append(t.clips, clip)
	t.Renormalize()
	return t.clips[len(t.clips)-1], nil
}

// RemoveClip deletes a clip and closes the gap it leaves. Unknown ids are a no-op.
func (t *Timeline) RemoveClip(id string) bool {
	i := t.indexOf(id)
	if i < 0 {
		return false
	}
	t.clips = append(t.clips[:i], t.clips[i+1:]...)
	t.Renormalize()
	return true
}

// SplitClip cuts the clip at globalSplitTime into two clips that reference the
// same source. The cut must land strictly inside the clip; a cut on a boundary
// or outside the clip leaves the timeline unchanged and reports false.
func (t *Timeline) SplitClip(id string, globalSplitTime float64) (first, second Clip, ok bool) {
	i := t.indexOf(id)
	if i < 0 {
		return Clip{}, Clip{}, false
	}
	orig := t.clips[i]

	local := globalSplitTime - orig.StartTime
	if !(local > 0) || local >= orig.DurationSeconds {
		return Clip{}, Clip{}, false
	}

	first = orig
	first.ID = t.newID()
	first.DurationSeconds = local
	first.EndOffset = orig.EndOffset + (orig.DurationSeconds - local)

	second = orig
	second.ID = t.newID()
	second.DurationSeconds = orig.DurationSeconds - local
	second.StartOffset = orig.StartOffset + local

	// Rounding can leave a sliver that is not a real clip.
	if first.DurationSeconds < epsilon || second.DurationSeconds < epsilon {
		return Clip{}, Clip{}, false
	}

	clips := make([]Clip, 0, len(t.clips)+1)
	clips = append(clips, t.clips[:i]...)
	clips = append(clips, first, second)
	clips = append(clips, t.clips[i+1:]...)
	t.clips = clips
	t.Renormalize()

	return t.clips[i], t.clips[i+1], true
}

// MoveClip reorders a clip to index to (clamped to the track bounds).
func (t *Timeline) MoveClip(id string, to int) bool {
	from := t.indexOf(id)
	if from < 0 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to >= len(t.clips) {
		to = len(t.clips) - 1
	}
	if from == to {
		return true
	}

	clip := t.clips[from]
	t.clips = append(t.clips[:from], t.clips[from+1:]...)
	t.clips = append(t.clips[:to], append([]Clip{clip}, t.clips[to:]...)...)
	t.Renormalize()
	return true
}

// Renormalize re-derives every clip start time as the running sum of the
// durations before it.
func (t *Timeline) Renormalize() {
	Renormalize(t.clips)
}

// Renormalize rewrites StartTime of clips in place so they abut from zero.
func Renormalize(clips []Clip) {
	var cursor float64
	for i := range clips {
		clips[i].StartTime = cursor
		cursor += clips[i].DurationSeconds
	}
}

// AddAudioTrack places an audio asset at startTime at full volume.
func (t *Timeline) AddAudioTrack(asset Asset, startTime float64) (AudioTrack, error) {
	if asset.ID == "" {
		return AudioTrack{}, fmt.Errorf("%w: missing id", ErrInvalidAsset)
	}
	if !(asset.DurationSeconds > 0) {
		return AudioTrack{}, fmt.Errorf("%w: asset %s has duration %v", ErrInvalidAsset, asset.ID, asset.DurationSeconds)
	}
	if startTime < 0 || math.IsNaN(startTime) {
		startTime = 0
	}

	track := AudioTrack{
		ID:              t.newID(),
		AssetID:         asset.ID,
		URL:             asset.URL,
		DurationSeconds: asset.DurationSeconds,
		StartTime:       startTime,
		Volume:          1,
		Name:            asset.Name,
	}
	t.audio = append(t.audio, track)
	return track, nil
}

func (t *Timeline) RemoveAudioTrack(id string) bool {
	for i, a := range t.audio {
		if a.ID == id {
			t.audio = append(t.audio[:i], t.audio[i+1:]...)
			return true
		}
	}
	return false
}

// SetAudioVolume sets a track's volume, clamped to [0, 1].
func (t *Timeline) SetAudioVolume(id string, volume float64) bool {
	for i := range t.audio {
		if t.audio[i].ID == id {
			t.audio[i].Volume = clampVolume(volume)
			return true
		}
	}
	return false
}

func (t *Timeline) indexOf(id string) int {
	for i, c := range t.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}
