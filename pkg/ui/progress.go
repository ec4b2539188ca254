package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZUGAZ/likes-to-go/pkg/collection"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker follows get-state snapshots during a headless collection
type StatusTracker struct {
	mu        sync.Mutex
	last      collection.Snapshot
	startTime time.Time
	now       func() time.Time
	spinner   int
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{startTime: time.Now(), now: time.Now}
}

// Update records a snapshot and reports whether anything changed
func (st *StatusTracker) Update(s collection.Snapshot) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	changed := s != st.last
	st.last = s
	st.spinner++
	return changed
}

// Last returns the most recent snapshot
func (st *StatusTracker) Last() collection.Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.last
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return st.now().Sub(st.startTime)
}

// GetRate returns tracks collected per minute so far
func (st *StatusTracker) GetRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(st.Last().TrackCount) / elapsed
}

// Bar renders a fixed-width activity bar; the collection has no known total
// so the filled segment just sweeps across
func (st *StatusTracker) Bar() string {
	const width = 20
	const segment = 4

	st.mu.Lock()
	pos := st.spinner % (width - segment + 1)
	st.mu.Unlock()

	return "[" + strings.Repeat(ProgressEmpty, pos) +
		strings.Repeat(ProgressBar, segment) +
		strings.Repeat(ProgressEmpty, width-segment-pos) + "]"
}

// Line renders the one-line status shown while collecting
func (st *StatusTracker) Line() string {
	s := st.Last()
	return fmt.Sprintf("%s %s %d tracks | %s | %.1f/min",
		Magenta("[COLLECTING]"),
		st.Bar(),
		s.TrackCount,
		st.GetElapsedTime().Truncate(time.Second),
		st.GetRate())
}

// PrintProgress rewrites the current status line
func (st *StatusTracker) PrintProgress() {
	fmt.Fprintf(out, "\r%s", st.Line())
}
