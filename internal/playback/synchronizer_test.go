package playback

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// newScenario builds clips of 5, 10 and 7 seconds from three different sources.
func newScenario(t *testing.T) (*timeline.Timeline, []timeline.Clip) {
	t.Helper()
	n := 0
	tl := timeline.New(timeline.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}))
	var clips []timeline.Clip
	for i, d := range []float64{5, 10, 7} {
		c, err := tl.AppendClip(timeline.Asset{
			ID:              fmt.Sprintf("a%d", i),
			URL:             fmt.Sprintf("/media/a%d", i),
			DurationSeconds: d,
		})
		require.NoError(t, err)
		clips = append(clips, c)
	}
	return tl, clips
}

func TestSynchronizer_SeekLoadsClip(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(7)

	assert.Equal(t, clips[1].ID, s.State().ActiveClipID)
	assert.Equal(t, []string{"/media/a1"}, src.Loads)
	assert.Equal(t, 2.0, src.Time)
	assert.False(t, s.State().IsPlaying)
	assert.False(t, src.Playing, "scrub must not start playback")
}

func TestSynchronizer_SeekHonoursTrim(t *testing.T) {
	tl, clips := newScenario(t)
	_, second, ok := tl.SplitClip(clips[1].ID, 12)
	require.True(t, ok)

	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)
	s.Seek(13)

	assert.Equal(t, second.ID, s.State().ActiveClipID)
	// 13 - 12 + startOffset 7
	assert.Equal(t, 8.0, src.Time)
}

func TestSynchronizer_DriftThreshold(t *testing.T) {
	tl, _ := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(6)
	require.Len(t, src.Seeks, 1)

	// Within tolerance: no re-seek.
	s.Seek(6.3)
	assert.Len(t, src.Seeks, 1)
	assert.Equal(t, 6.3, s.State().GlobalTime)

	// Beyond tolerance: hard seek.
	s.Seek(8)
	require.Len(t, src.Seeks, 2)
	assert.Equal(t, 3.0, src.Seeks[1])
	assert.Len(t, src.Loads, 1, "same clip must not reload")
}

func TestSynchronizer_CustomDriftThreshold(t *testing.T) {
	tl, _ := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)
	s.SetDriftThreshold(0.1)

	s.Seek(6)
	s.Seek(6.3)
	assert.Len(t, src.Seeks, 2)
}

func TestSynchronizer_TimeUpdateAdvancesPlayhead(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(0)
	s.Play()
	require.True(t, src.Playing)

	src.Time = 3.2
	s.OnTimeUpdate(3.2)
	assert.InDelta(t, 3.2, s.State().GlobalTime, 1e-9)
	assert.Equal(t, clips[0].ID, s.State().ActiveClipID)
	assert.Len(t, src.Seeks, 1, "time reports must not cause seeks")
}

func TestSynchronizer_TimeUpdateIgnoredWhilePaused(t *testing.T) {
	tl, _ := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(1)
	s.OnTimeUpdate(4)
	assert.Equal(t, 1.0, s.State().GlobalTime)
}

func TestSynchronizer_BoundaryCrossing(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(4)
	s.Play()

	// Element of clip 0 reports past the clip's end.
	src.Time = 5.05
	s.OnTimeUpdate(5.05)

	assert.Equal(t, clips[1].ID, s.State().ActiveClipID)
	assert.Equal(t, []string{"/media/a0", "/media/a1"}, src.Loads)
	assert.InDelta(t, 0.05, src.Time, 1e-9)
	assert.True(t, src.Playing)
	assert.GreaterOrEqual(t, src.Plays, 2, "playback resumes after the swap")
}

func TestSynchronizer_TrimmedClipCrossesBeforeSourceEnds(t *testing.T) {
	tl, clips := newScenario(t)
	first, second, ok := tl.SplitClip(clips[1].ID, 12)
	require.True(t, ok)
	tl.RemoveClip(second.ID)

	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)
	s.Seek(11)
	s.Play()
	require.Equal(t, first.ID, s.State().ActiveClipID)

	// first covers source [0,7); the element keeps running past the trim.
	src.Time = 7.1
	s.OnTimeUpdate(7.1)

	assert.Equal(t, clips[2].ID, s.State().ActiveClipID)
	assert.Equal(t, "/media/a2", src.Src)
}

func TestSynchronizer_SplitKeepsSourceLoaded(t *testing.T) {
	tl, clips := newScenario(t)
	s := NewSynchronizer(&FakeSource{}, tl, nil)
	src := s.src.(*FakeSource)

	s.Seek(6)
	s.Play()
	_, second, ok := tl.SplitClip(clips[1].ID, 12)
	require.True(t, ok)
	s.Refresh()

	src.Time = 7.02
	s.OnTimeUpdate(7.02)

	assert.Equal(t, second.ID, s.State().ActiveClipID)
	assert.Len(t, src.Loads, 1, "crossing a split must not reload the same source")
}

func TestSynchronizer_ShortCutWithinOneSourceSeeksPastRemovedMedia(t *testing.T) {
	n := 0
	tl := timeline.New(timeline.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}))
	whole, err := tl.AppendClip(timeline.Asset{ID: "a", URL: "/media/a", DurationSeconds: 10})
	require.NoError(t, err)
	_, rest, ok := tl.SplitClip(whole.ID, 3)
	require.True(t, ok)
	cut, tail, ok := tl.SplitClip(rest.ID, 3.3)
	require.True(t, ok)
	tl.RemoveClip(cut.ID)

	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)
	s.Seek(2.9)
	s.Play()

	// The element plays into the removed 0.3 s and must be sent past it.
	src.Time = 3.05
	s.OnTimeUpdate(3.05)

	assert.Equal(t, tail.ID, s.State().ActiveClipID)
	assert.InDelta(t, 3.35, src.Time, 1e-9)
	assert.Len(t, src.Loads, 1, "same source must not reload")
	assert.True(t, src.Playing)

	heads := []float64{s.State().GlobalTime}
	for _, elementTime := range []float64{3.45, 3.55, 3.65} {
		src.Time = elementTime
		s.OnTimeUpdate(elementTime)
		heads = append(heads, s.State().GlobalTime)
		assert.Equal(t, tail.ID, s.State().ActiveClipID)
	}
	for i := 1; i < len(heads); i++ {
		assert.GreaterOrEqual(t, heads[i], heads[i-1], "play-head moved backwards: %v", heads)
	}
	assert.InDelta(t, 3.35, heads[len(heads)-1], 1e-9)
}

func TestSynchronizer_EndedAdvancesToNextClip(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(0)
	s.Play()
	s.OnEnded()

	assert.Equal(t, 5.0, s.State().GlobalTime)
	assert.Equal(t, clips[1].ID, s.State().ActiveClipID)
	assert.Equal(t, "/media/a1", src.Src)
	assert.True(t, s.State().IsPlaying)
}

func TestSynchronizer_EndedOnLastClipStopsAndRewinds(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(20)
	s.Play()
	s.OnEnded()

	st := s.State()
	assert.False(t, st.IsPlaying)
	assert.Equal(t, 0.0, st.GlobalTime)
	assert.Equal(t, clips[0].ID, st.ActiveClipID, "rewound preview shows the first clip")
	assert.False(t, src.Playing)
	assert.Equal(t, 0.0, src.Time)
}

func TestSynchronizer_PastEndWhilePlayingStops(t *testing.T) {
	tl, _ := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(21)
	s.Play()
	src.Time = 7.2
	s.OnTimeUpdate(7.2)

	assert.False(t, s.State().IsPlaying)
	assert.Equal(t, 0.0, s.State().GlobalTime)
}

func TestSynchronizer_RemovingActiveClipWhilePlaying(t *testing.T) {
	tl, clips := newScenario(t)
	src := &FakeSource{}
	s := NewSynchronizer(src, tl, nil)

	s.Seek(20)
	s.Play()
	tl.RemoveClip(clips[2].ID)
	s.Refresh()

	assert.False(t, s.State().IsPlaying)
	assert.Equal(t, 0.0, s.State().GlobalTime)
}

func TestSynchronizer_PlayOnEmptyTimeline(t *testing.T) {
	src := &FakeSource{}
	s := NewSynchronizer(src, timeline.New(), nil)

	s.Play()

	assert.False(t, s.State().IsPlaying)
	assert.Empty(t, src.Loads)
	assert.False(t, src.Playing)
}

func TestSynchronizer_SeekPastEndWhilePaused(t *testing.T) {
	tl, _ := newScenario(t)
	s := NewSynchronizer(&FakeSource{}, tl, nil)

	s.Seek(3)
	s.Seek(40)

	assert.Equal(t, 40.0, s.State().GlobalTime)
	assert.Empty(t, s.State().ActiveClipID)
}

func TestRemoteSource_Directives(t *testing.T) {
	src := NewRemoteSource()

	src.Load("/media/a")
	src.Seek(2.5)
	src.Play()
	src.Play()

	d := src.Directive()
	assert.Equal(t, uint64(3), d.Seq)
	assert.Equal(t, "/media/a", d.Src)
	assert.Equal(t, 2.5, d.Position)
	assert.True(t, d.Playing)

	assert.False(t, src.ReportTime(2, 9), "stale report")
	assert.Equal(t, 2.5, src.CurrentTime())
	assert.True(t, src.ReportTime(3, 2.9))
	assert.Equal(t, 2.9, src.CurrentTime())
	assert.True(t, src.IsCurrent(3))

	src.Pause()
	assert.False(t, src.IsCurrent(3))
	assert.False(t, src.Directive().Playing)
}
