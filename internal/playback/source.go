package playback

import "sync"

// MediaSource is the minimal seekable player the Synchronizer drives.
// Seeks are fire-and-forget: the synchronizer never waits for them to settle
// and learns the element position through CurrentTime and OnTimeUpdate.
type MediaSource interface {
	Load(url string)
	Seek(seconds float64)
	Play()
	Pause()
	CurrentTime() float64
}

// Directive is the player state a browser should converge to.
type Directive struct {
	Seq      uint64  `json:"seq"`
	Src      string  `json:"src"`
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
}

// RemoteSource is a MediaSource for a player that lives in a browser. Every
// command bumps Seq; the browser applies the newest directive and reports
// element time back through ReportTime.
type RemoteSource struct {
	mu        sync.Mutex
	directive Directive
	reported  float64
}

func NewRemoteSource() *RemoteSource {
	return &RemoteSource{}
}

func (s *RemoteSource) Load(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directive.Seq++
	s.directive.Src = url
	s.directive.Position = 0
	s.reported = 0
}

func (s *RemoteSource) Seek(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directive.Seq++
	s.directive.Position = seconds
	s.reported = seconds
}

func (s *RemoteSource) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.directive.Playing {
		return
	}
	s.directive.Seq++
	s.directive.Playing = true
}

func (s *RemoteSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.directive.Playing {
		return
	}
	s.directive.Seq++
	s.directive.Playing = false
}

func (s *RemoteSource) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reported
}

// ReportTime records element time reported by the browser for directive seq.
// Reports for an older directive are stale (the element had not yet applied
// the latest load or seek) and are rejected.
func (s *RemoteSource) ReportTime(seq uint64, seconds float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.directive.Seq {
		return false
	}
	s.reported = seconds
	return true
}

// IsCurrent reports whether seq refers to the latest directive.
func (s *RemoteSource) IsCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq >= s.directive.Seq
}

func (s *RemoteSource) Directive() Directive {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directive
}

// FakeSource records every command; used in tests and for headless sessions.
type FakeSource struct {
	Src     string
	Time    float64
	Playing bool

	Loads  []string
	Seeks  []float64
	Plays  int
	Pauses int
}

func (f *FakeSource) Load(url string) {
	f.Src = url
	f.Time = 0
	f.Loads = append(f.Loads, url)
}

func (f *FakeSource) Seek(seconds float64) {
	f.Time = seconds
	f.Seeks = append(f.Seeks, seconds)
}

func (f *FakeSource) Play() {
	f.Playing = true
	f.Plays++
}

func (f *FakeSource) Pause() {
	f.Playing = false
	f.Pauses++
}

func (f *FakeSource) CurrentTime() float64 {
	return f.Time
}
