package bench

import "time"

// Result is the outcome of one dispatched input. Created exactly once per
// input; never mutated after it is appended to the run's results.
//
// Completion order is not index order: correlate back to inputs through
// Index, never through position.
type Result struct {
	Index        int
	InputPreview string
	Duration     time.Duration
	Success      bool
	Output       string // preview of the output, successes only
	Err          string
	TimedOut     bool
	CompletedAt  time.Duration // offset from run start
	PendingTime  time.Duration // queuing delay between submission and dispatch
	Timing       *TimingInfo
}

// preview truncates s for display.
func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
