package timeline

import (
	"encoding/json"
	"fmt"
	"math"
)

// AssetLookup resolves an asset by id. A nil lookup skips the trim check.
type AssetLookup func(id string) (Asset, bool)

// Validate checks the video-track invariants of a document: the first clip
// starts at zero, each clip starts where the previous one ends, durations are
// positive, offsets are non-negative and, when the asset is known, the trimmed
// span fits inside the source.
func Validate(doc Document, lookup AssetLookup) error {
	var cursor float64
	seen := make(map[string]bool, len(doc.Clips))

	for i, c := range doc.Clips {
		if c.ID == "" {
			return &InvariantError{Index: i, Reason: "missing id"}
		}
		if seen[c.ID] {
			return &InvariantError{Index: i, ClipID: c.ID, Reason: "duplicate id"}
		}
		seen[c.ID] = true

		if !(c.DurationSeconds > 0) || math.IsInf(c.DurationSeconds, 0) {
			return &InvariantError{Index: i, ClipID: c.ID, Reason: fmt.Sprintf("non-positive duration %v", c.DurationSeconds)}
		}
		if c.StartOffset < 0 || c.EndOffset < 0 {
			return &InvariantError{Index: i, ClipID: c.ID, Reason: "negative trim offset"}
		}
		if math.Abs(c.StartTime-cursor) > epsilon {
			return &InvariantError{Index: i, ClipID: c.ID, Reason: fmt.Sprintf("starts at %v, want %v", c.StartTime, cursor)}
		}

		if lookup != nil && c.AssetID != "" {
			if asset, ok := lookup(c.AssetID); ok && asset.DurationSeconds+epsilon < c.SourceSpan() {
				return &InvariantError{Index: i, ClipID: c.ID,
					Reason: fmt.Sprintf("trim span %v exceeds asset duration %v", c.SourceSpan(), asset.DurationSeconds)}
			}
		}
		cursor += c.DurationSeconds
	}
	return nil
}

// Marshal encodes a document in its persisted JSON form.
func Marshal(doc Document) ([]byte, error) {
	return json.Marshal(doc.Clone())
}

// Unmarshal decodes a persisted document. It does not validate; use
// FromDocument to obtain a usable timeline.
func Unmarshal(data []byte) (Document, error) {
	var doc Document
	if len(data) == 0 {
		return doc.Clone(), nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode timeline: %w", err)
	}
	return doc.Clone(), nil
}
