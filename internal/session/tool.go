package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownTool = errors.New("unknown tool")

type Tool string

const (
	ToolSelect Tool = "select"
	ToolBlade  Tool = "blade"
)

func ParseTool(name string) (Tool, error) {
	switch t := Tool(strings.ToLower(strings.TrimSpace(name))); t {
	case ToolSelect, ToolBlade:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

func (s *Session) SetTool(ctx context.Context, name string) (State, error) {
	tool, err := ParseTool(name)
	if err != nil {
		return State{}, err
	}
	return s.playback(ctx, func() { s.tool = tool })
}

// Click applies a timeline click with the active tool. Select seeks there.
// Blade splits the clip under the click and falls back to select; a click in
// empty space leaves the blade armed.
func (s *Session) Click(ctx context.Context, globalTime float64) (State, error) {
	var st State
	err := s.Do(ctx, func() error {
		switch s.tool {
		case ToolBlade:
			clip, ok := s.tl.Locate(globalTime)
			if !ok {
				break
			}
			if _, _, split := s.tl.SplitClip(clip.ID, globalTime); split {
				s.sync.Refresh()
				s.saver.MarkDirty()
			}
			s.tool = ToolSelect
		default:
			s.sync.Seek(globalTime)
		}
		st = s.snapshot()
		return nil
	})
	return st, err
}
