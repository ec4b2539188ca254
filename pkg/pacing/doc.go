// Package pacing decides how long the scrape loop waits between actions.
//
// Two rules are combined:
//
// Jittered delay:
//   - Normal distribution, mean 3500ms, standard deviation 500ms
//   - Sampled with the Box-Muller transform from a uniform source
//   - Clamped to [2000, 5000] and rounded to whole milliseconds
//
// Rolling rate cap:
//   - At most 12 actions in any trailing 60s window by default
//   - When the cap is reached the loop waits until the oldest action ages out
//
// Usage:
//
//	pacer := pacing.NewPacer(nil, pacing.DefaultMaxActionsPerMinute)
//
//	for {
//	    // ... extract, report ...
//	    wait := pacer.Next(time.Now())
//	    time.Sleep(wait)
//	}
//
// The pure helpers NextDelayMs and RateCapWaitMs take the random source and
// the clock as arguments so they can be tested deterministically.
package pacing
