package pacing

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
)

const (
	DelayMinMs  = 2000
	DelayMaxMs  = 5000
	DelayMeanMs = (DelayMinMs + DelayMaxMs) / 2
	DelayStdMs  = 500

	WindowMs = 60_000
	Window   = WindowMs * time.Millisecond

	DefaultMaxActionsPerMinute = 12

	// resample bound for sources that only ever return 0 or 1
	maxResamples = 16
)

// RandomSource returns uniform samples in [0, 1)
type RandomSource func() float64

// Jitter produces gaussian-jittered inter-action delays. It keeps the spare
// Box-Muller sample for the next call, so one Jitter belongs to one loop.
type Jitter struct {
	mu       sync.Mutex
	rng      RandomSource
	spare    float64
	hasSpare bool
}

// NewJitter creates a Jitter; a nil source uses math/rand
func NewJitter(rng RandomSource) *Jitter {
	if rng == nil {
		rng = rand.Float64
	}
	return &Jitter{rng: rng}
}

// NextDelayMs returns an integer delay in [DelayMinMs, DelayMaxMs]
func (j *Jitter) NextDelayMs() int64 {
	j.mu.Lock()
	g := j.normal()
	j.mu.Unlock()

	ms := DelayMeanMs + DelayStdMs*g
	ms = math.Max(DelayMinMs, math.Min(DelayMaxMs, ms))
	return int64(math.Round(ms))
}

// NextDelay is NextDelayMs as a time.Duration
func (j *Jitter) NextDelay() time.Duration {
	return time.Duration(j.NextDelayMs()) * time.Millisecond
}

func (j *Jitter) normal() float64 {
	if j.hasSpare {
		j.hasSpare = false
		return j.spare
	}
	for i := 0; i < maxResamples; i++ {
		u := j.rng()
		v := j.rng()
		if u <= 0 || u >= 1 {
			continue
		}
		r := math.Sqrt(-2 * math.Log(u))
		j.spare = r * math.Sin(2*math.Pi*v)
		j.hasSpare = true
		return r * math.Cos(2*math.Pi*v)
	}
	return 0
}

// NextDelayMs samples a single delay from rng without keeping a spare
func NextDelayMs(rng RandomSource) int64 {
	return NewJitter(rng).NextDelayMs()
}

// RateCapWaitMs returns how many ms to wait so that no more than max actions
// fall inside any trailing 60s window. Timestamps are unix milliseconds.
func RateCapWaitMs(timestamps []int64, max int, nowMs int64) int64 {
	cutoff := nowMs - WindowMs
	inWindow := make([]int64, 0, len(timestamps))
	for _, ts := range timestamps {
		if ts >= cutoff {
			inWindow = append(inWindow, ts)
		}
	}
	if len(inWindow) < max || len(inWindow) == 0 {
		return 0
	}
	sort.Slice(inWindow, func(i, k int) bool { return inWindow[i] < inWindow[k] })
	wait := inWindow[0] + WindowMs - nowMs
	if wait < 0 {
		return 0
	}
	return wait
}

// ActionWindow tracks recent action times for the rolling rate cap
type ActionWindow struct {
	size    time.Duration
	max     int
	actions []time.Time
	mu      sync.Mutex
}

// NewActionWindow creates a window allowing max actions per size
func NewActionWindow(max int, size time.Duration) *ActionWindow {
	if max <= 0 {
		max = DefaultMaxActionsPerMinute
	}
	if size <= 0 {
		size = Window
	}
	return &ActionWindow{
		size:    size,
		max:     max,
		actions: make([]time.Time, 0, max),
	}
}

// Record adds an action at now
func (w *ActionWindow) Record(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleanOldActions(now)
	w.actions = append(w.actions, now)
}

// Wait returns the extra time to hold off so the oldest counted action ages out
func (w *ActionWindow) Wait(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cleanOldActions(now)
	if len(w.actions) < w.max {
		return 0
	}
	wait := w.actions[0].Add(w.size).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// Len returns the number of actions still inside the window
func (w *ActionWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.actions)
}

// cleanOldActions drops actions older than the window. Actions are recorded
// in order so the slice stays sorted.
func (w *ActionWindow) cleanOldActions(now time.Time) {
	cutoff := now.Add(-w.size)

	i := 0
	for i < len(w.actions) && w.actions[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(w.actions, w.actions[i:])
		w.actions = w.actions[:len(w.actions)-i]
	}
}

// Pacer combines the jittered delay with the rolling rate cap
type Pacer struct {
	jitter *Jitter
	window *ActionWindow
}

// NewPacer creates a Pacer for one scrape loop
func NewPacer(rng RandomSource, maxPerMinute int) *Pacer {
	return &Pacer{
		jitter: NewJitter(rng),
		window: NewActionWindow(maxPerMinute, Window),
	}
}

// Next records an action at now and returns how long to wait before the next one
func (p *Pacer) Next(now time.Time) time.Duration {
	p.window.Record(now)
	return p.jitter.NextDelay() + p.window.Wait(now)
}
