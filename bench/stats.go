package bench

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Stats is a point-in-time summary of a run. Intermediate and final stats
// use the identical computation; only the framing differs at print time.
type Stats struct {
	Completed int
	Total     int
	Elapsed   time.Duration
	Successes int
	Failures  int

	// Over successful outcomes only. Latencies in seconds.
	Throughput     float64 // requests per second
	CharThroughput float64 // input characters per second
	AvgLatency     float64
	P50, P90, P99  float64

	Timing *TimingStats
}

// TimingStats collects the per-stage overhead samples (seconds) of every
// successful outcome that carried timing headers. Only strictly positive
// components qualify; a stage with no qualifying samples is unavailable,
// not zero.
type TimingStats struct {
	Count   int // outcomes with timing headers
	Network []float64
	Worker  []float64
	Proxy   []float64
	Client  []float64
}

// Summarize computes run statistics over the results collected so far.
// inputs is the full (possibly truncated) input list; Result.Index values
// point into it.
func Summarize(results []Result, inputs []string, elapsed time.Duration, total int) *Stats {
	s := &Stats{
		Completed: len(results),
		Total:     total,
		Elapsed:   elapsed,
	}

	var durations []float64
	var inputChars int
	var successes []Result
	for _, r := range results {
		if !r.Success {
			s.Failures++
			continue
		}
		s.Successes++
		successes = append(successes, r)
		durations = append(durations, r.Duration.Seconds())
		if r.Index < len(inputs) {
			inputChars += len(inputs[r.Index])
		}
	}

	if s.Successes > 0 && elapsed > 0 {
		s.Throughput = float64(s.Successes) / elapsed.Seconds()
		s.CharThroughput = float64(inputChars) / elapsed.Seconds()
	}
	if len(durations) > 0 {
		s.AvgLatency = mean(durations)
		sort.Float64s(durations)
		s.P50 = percentile(durations, 0.50)
		s.P90 = percentile(durations, 0.90)
		s.P99 = percentile(durations, 0.99)
	}

	s.Timing = summarizeTiming(successes)
	return s
}

// summarizeTiming aggregates the timing-overhead breakdown over successful
// outcomes. Returns nil when no outcome carried a usable breakdown.
func summarizeTiming(successes []Result) *TimingStats {
	ts := &TimingStats{}
	for _, r := range successes {
		if r.Timing == nil {
			continue
		}
		ts.Count++
		oh := r.Timing.Breakdown(r.Duration)
		if oh.Network != nil {
			ts.Network = append(ts.Network, *oh.Network)
		}
		if oh.Worker != nil {
			ts.Worker = append(ts.Worker, *oh.Worker)
		}
		if oh.Proxy != nil {
			ts.Proxy = append(ts.Proxy, *oh.Proxy)
		}
		if oh.Client != nil {
			ts.Client = append(ts.Client, *oh.Client)
		}
	}
	if ts.Count == 0 {
		return nil
	}
	if len(ts.Network) == 0 && len(ts.Worker) == 0 && len(ts.Proxy) == 0 && len(ts.Client) == 0 {
		return nil
	}
	return ts
}

// percentile selects sorted[floor(len*pct)], clamped to the last element.
// This is deliberately an order statistic, not an interpolated percentile:
// p90 of ten durations picks the tenth value.
func percentile(sorted []float64, pct float64) float64 {
	idx := int(float64(len(sorted)) * pct)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// median averages the two middle elements for even-length input.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Print writes the stats block. final switches the framing, nothing else.
func (s *Stats) Print(w io.Writer, final bool) {
	sep := "─"
	title := fmt.Sprintf("STATS (%d/%d, %.1fs)", s.Completed, s.Total, s.Elapsed.Seconds())
	if final {
		sep = "="
		title = "FINAL RESULTS"
	}
	line := strings.Repeat(sep, 70)

	fmt.Fprintf(w, "\n%s\n", line)
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Successful: %d | Failed: %d\n", s.Successes, s.Failures)
	if final {
		fmt.Fprintf(w, "  Total time: %.2fs\n", s.Elapsed.Seconds())
	}

	if s.Successes > 0 {
		fmt.Fprintf(w, "\n  Throughput: %.2f req/s | %.0f chars/s\n", s.Throughput, s.CharThroughput)
		fmt.Fprintf(w, "  Latency: avg %.2fs | p50 %.2fs | p90 %.2fs | p99 %.2fs\n",
			s.AvgLatency, s.P50, s.P90, s.P99)

		if s.Timing != nil {
			fmt.Fprintln(w)
			s.Timing.print(w, "  ")
		}
	}

	fmt.Fprintf(w, "%s\n\n", line)
}

func (ts *TimingStats) print(w io.Writer, prefix string) {
	fmt.Fprintf(w, "%sTiming Breakdown (%d requests with timing headers):\n", prefix, ts.Count)

	components := []struct {
		name string
		vals []float64
	}{
		{"Network overhead", ts.Network},
		{"Worker duration", ts.Worker},
		{"Proxy overhead", ts.Proxy},
		{"Client overhead", ts.Client},
	}
	for _, c := range components {
		if len(c.vals) == 0 {
			fmt.Fprintf(w, "%s  %s: N/A\n", prefix, c.name)
			continue
		}
		sorted := append([]float64(nil), c.vals...)
		sort.Float64s(sorted)
		fmt.Fprintf(w, "%s  %s: avg: %.3fs | median: %.3fs | p90: %.3fs\n",
			prefix, c.name, mean(c.vals), median(c.vals), percentile(sorted, 0.90))
	}
}
