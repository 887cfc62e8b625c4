package render

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_MonotonicPercentage(t *testing.T) {
	var seen []float64
	tr := NewTracker("j1", func(p Progress) { seen = append(seen, p.Percentage) })

	assert.True(t, tr.Update(10, "queued"))
	assert.True(t, tr.Update(40, "encoding"))
	assert.True(t, tr.Update(25, "muxing"), "stage change is accepted")
	assert.False(t, tr.Update(30, "muxing"), "lower percentage with the same stage is a no-op")

	p := tr.Progress()
	assert.Equal(t, StateRunning, p.State)
	assert.Equal(t, 40.0, p.Percentage)
	assert.Equal(t, "muxing", p.Stage)
	assert.Equal(t, []float64{10, 40, 40}, seen)
}

func TestTracker_ClampsPercentage(t *testing.T) {
	tr := NewTracker("j1", nil)
	tr.Update(-5, "a")
	assert.Equal(t, 0.0, tr.Progress().Percentage)
	tr.Update(150, "b")
	assert.Equal(t, 100.0, tr.Progress().Percentage)
	assert.Equal(t, StateRunning, tr.Progress().State, "100% is not completion")
}

func TestTracker_CompleteIsTerminal(t *testing.T) {
	tr := NewTracker("j1", nil)
	tr.Update(50, "encoding")

	assert.True(t, tr.Complete("https://cdn/out.mp4"))
	assert.False(t, tr.Update(60, "late"))
	assert.False(t, tr.Fail("late failure"))
	assert.False(t, tr.Complete("other"))

	p := tr.Progress()
	assert.Equal(t, StateComplete, p.State)
	assert.Equal(t, 100.0, p.Percentage)
	assert.Equal(t, "https://cdn/out.mp4", p.DownloadURL)
	assert.Empty(t, p.Error)

	select {
	case <-tr.Done():
	default:
		t.Fatal("Done not closed after completion")
	}
}

func TestTracker_FailKeepsPercentage(t *testing.T) {
	tr := NewTracker("j1", nil)
	tr.Update(70, "encoding")
	tr.Fail("encoder crashed")

	p := tr.Progress()
	assert.Equal(t, StateFailed, p.State)
	assert.Equal(t, 70.0, p.Percentage)
	assert.Equal(t, "encoder crashed", p.Error)
	assert.False(t, tr.Update(90, "x"))
}

func TestTracker_ConcurrentUpdatesStayMonotonic(t *testing.T) {
	tr := NewTracker("j1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for pct := offset; pct <= 100; pct += 8 {
				tr.Update(float64(pct), "encoding")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100.0, tr.Progress().Percentage)
}
