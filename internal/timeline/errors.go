package timeline

import (
	"errors"
	"fmt"
)

var (
	ErrClipNotFound  = errors.New("clip not found")
	ErrTrackNotFound = errors.New("audio track not found")
	ErrInvalidClip   = errors.New("invalid clip")
	ErrInvalidAsset  = errors.New("invalid asset")
)

// InvariantError describes a document that breaks a video-track invariant.
type InvariantError struct {
	Index  int
	ClipID string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("clip %d (%s): %s", e.Index, e.ClipID, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvalidClip
}
