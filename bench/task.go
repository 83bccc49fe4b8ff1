package bench

import (
	"context"
	"time"
)

// Sample is a universal evaluation sample: an input, its reference output,
// and task-specific metadata. Immutable once loaded.
type Sample struct {
	Input     string
	Reference string
	Meta      map[string]any
}

// TaskResult is the outcome of a single Task.Run call.
type TaskResult struct {
	Output   string
	Timing   *TimingInfo // timing headers, if the endpoint surfaced them
	Duration time.Duration
	Meta     map[string]any
}

// Task is a unit of work the load generator and the evaluator drive.
// Implementations are configured at construction (language pair, etc.) and
// must be safe to call concurrently with the same Config.
//
// Run must return a descriptive error rather than hang; timeout errors
// should contain the substring "timeout" so outcomes are flagged correctly.
type Task interface {
	// Name is the cache namespace for this task ("translate", "summarize").
	Name() string

	// Run executes the task on a single input.
	Run(ctx context.Context, text string, cfg *Config) (*TaskResult, error)

	// LoadEvalData loads up to n evaluation samples.
	LoadEvalData(n int) ([]Sample, error)

	// ComputeScores computes per-sample quality scores for outputs
	// (parallel to samples). A nil entry means the sample was not scored.
	ComputeScores(samples []Sample, outputs []string) ([]*float64, error)

	// CacheKey is a stable identifier for this task configuration.
	CacheKey() string

	// Params returns the task parameters that distinguish cache entries
	// (e.g. the target language).
	Params() map[string]any

	// MetricName names the score metric for caching ("chrf").
	MetricName() string

	// FormatProgress returns a short label for progress lines ("en->ru").
	FormatProgress() string
}

// ScoreSummary is the aggregate of per-sample scores. N == 0 means no
// sample produced a score.
type ScoreSummary struct {
	Score float64
	N     int
}

// AggregateScores reduces per-sample scores to their mean, skipping
// unscored samples.
func AggregateScores(scores []*float64) ScoreSummary {
	var sum float64
	var n int
	for _, s := range scores {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return ScoreSummary{}
	}
	return ScoreSummary{Score: sum / float64(n), N: n}
}
