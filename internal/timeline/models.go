// Package timeline holds the edit decision list (EDL) of an editor session:
// one gapless video track of trimmed clips plus free-floating audio tracks.
//
// Every structural operation renormalizes clip start times so that the video
// track never contains a gap or an overlap. Start times are derived data and
// are never trusted from input.
package timeline

import "math"

type AssetKind string

const (
	KindVideo AssetKind = "video"
	KindAudio AssetKind = "audio"
	KindImage AssetKind = "image"
)

// epsilon absorbs float rounding when comparing running sums of durations.
const epsilon = 1e-9

// Asset is an uploaded or imported source. Clips reference it by id.
type Asset struct {
	ID              string    `json:"id"`
	Kind            AssetKind `json:"kind"`
	URL             string    `json:"url"`
	DurationSeconds float64   `json:"durationSeconds"`
	Name            string    `json:"name"`
}

// Clip is a trimmed reference into a source asset.
// StartOffset and EndOffset are the head and tail trimmed away from the source.
type Clip struct {
	ID              string  `json:"id"`
	AssetID         string  `json:"assetId"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
	StartTime       float64 `json:"startTime"`
	Name            string  `json:"name"`
	StartOffset     float64 `json:"startOffset"`
	EndOffset       float64 `json:"endOffset"`
}

// End returns the exclusive end of the clip on the global timeline.
func (c Clip) End() float64 {
	return c.StartTime + c.DurationSeconds
}

// Contains reports whether global time t falls in [StartTime, End).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.End()
}

// LocalTime maps a global play-head time to a seek position inside the source.
func (c Clip) LocalTime(global float64) float64 {
	return global - c.StartTime + c.StartOffset
}

// GlobalTime is the inverse of LocalTime: it maps a source position reported
// by the media element back onto the timeline.
func (c Clip) GlobalTime(elementTime float64) float64 {
	return c.StartTime + (elementTime - c.StartOffset)
}

// SourceSpan returns the total source length the clip accounts for.
func (c Clip) SourceSpan() float64 {
	return c.StartOffset + c.DurationSeconds + c.EndOffset
}

// AudioTrack is positioned independently of the video track and may overlap it.
type AudioTrack struct {
	ID              string  `json:"id"`
	AssetID         string  `json:"assetId,omitempty"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
	StartTime       float64 `json:"startTime"`
	Volume          float64 `json:"volume"`
	Name            string  `json:"name"`
}

// Document is the persisted shape of a timeline (a project's timelineData).
type Document struct {
	Clips       []Clip       `json:"clips"`
	AudioTracks []AudioTrack `json:"audioTracks"`
}

// TotalDuration is the sum of clip durations.
func (d Document) TotalDuration() float64 {
	var total float64
	for _, c := range d.Clips {
		total += c.DurationSeconds
	}
	return total
}

// Clone returns a deep copy of the document. Nil slices become empty slices so
// that the JSON form is always {"clips":[],"audioTracks":[]}.
func (d Document) Clone() Document {
	out := Document{
		Clips:       make([]Clip, len(d.Clips)),
		AudioTracks: make([]AudioTrack, len(d.AudioTracks)),
	}
	copy(out.Clips, d.Clips)
	copy(out.AudioTracks, d.AudioTracks)
	return out
}

// AssetIDs lists the distinct assets referenced by the document in first-use order.
func (d Document) AssetIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, c := range d.Clips {
		add(c.AssetID)
	}
	for _, a := range d.AudioTracks {
		add(a.AssetID)
	}
	return ids
}

func clampVolume(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Max(0, math.Min(1, v))
}
