// Package timing provides a monotonic stopwatch for latency and TTFB
// measurement. Every duration recorded anywhere in the engine or an adapter
// must come from this package, never from subtracting wall-clock timestamps:
// time.Now() carries a monotonic reading alongside the wall clock, and that
// reading is what Sub actually uses as long as neither value has been
// round-tripped through formatting.
package timing

import "time"

// Handle is an opaque starting point returned by Start.
type Handle struct {
	start time.Time
}

// Start begins a new stopwatch reading.
func Start() Handle {
	return Handle{start: time.Now()}
}

// Elapsed returns the number of seconds elapsed since h was started, with
// sub-millisecond precision.
func Elapsed(h Handle) float64 {
	return time.Since(h.start).Seconds()
}

// ElapsedSince is a convenience for measuring the interval between two
// already-started handles (e.g. TTFB relative to call start).
func ElapsedSince(h Handle, ref Handle) float64 {
	return h.start.Sub(ref.start).Seconds()
}
