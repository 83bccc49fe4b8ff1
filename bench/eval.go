package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mt-bench/mt-bench/bench/cache"
)

// EvalStats counts how each sample of a model evaluation was handled.
type EvalStats struct {
	Executed int
	Cached   int
	Errors   int
}

// scoreTruncate bounds the text fed into a score-cache hash, so the key is
// cheap to compute and insensitive to trailing content.
const scoreTruncate = 200

// ScoreSampleHash hashes a (source, hypothesis, reference) triple for the
// per-sample score cache. Each component is truncated to its first 200
// characters before hashing.
func ScoreSampleHash(src, hyp, ref string) string {
	payload := struct {
		H string `json:"h"`
		R string `json:"r"`
		S string `json:"s"`
	}{truncateRunes(hyp, scoreTruncate), truncateRunes(ref, scoreTruncate), truncateRunes(src, scoreTruncate)}
	b, _ := json.Marshal(payload)
	return cache.StableHash(string(b))
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// RunModelEval evaluates one model configuration on one task: produce an
// output per sample (read-through on the result cache), then score the
// outputs (read-through on the per-sample score cache).
//
// outputs is parallel to samples; an empty string marks a sample that
// produced no usable output. Per-sample failures never abort the batch.
func RunModelEval(
	ctx context.Context,
	task Task,
	samples []Sample,
	cfg *Config,
	c *cache.Cache,
	concurrency int,
	out io.Writer,
) ([]string, EvalStats, ScoreSummary, []*float64, error) {
	outputs := make([]string, len(samples))
	var stats EvalStats
	var statsMu sync.Mutex

	configKey := cfg.CacheKey()
	modelTag := "[" + configKey + "]"
	taskKey := task.Name()
	params := task.Params()
	progress := task.FormatProgress()

	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, sample := range samples {
		i, sample := i, sample
		g.Go(func() error {
			inputLen := len(sample.Input)

			if output, _, ok := c.Lookup(taskKey, sample.Input, configKey, params); ok {
				outputs[i] = output
				statsMu.Lock()
				stats.Cached++
				statsMu.Unlock()
				fmt.Fprintf(out, "%s [%d/%d] %s ⚡ CACHED | %d → %d chars\n",
					modelTag, i+1, len(samples), progress, inputLen, len(output))
				return nil
			}

			start := time.Now()
			res, err := task.Run(gctx, sample.Input, cfg)
			duration := time.Since(start)
			if err != nil {
				statsMu.Lock()
				stats.Errors++
				statsMu.Unlock()
				fmt.Fprintf(out, "%s [%d/%d] %s ✗ %.2fs | Error: %v\n",
					modelTag, i+1, len(samples), progress, duration.Seconds(), err)
				return nil
			}

			outputs[i] = res.Output
			c.Store(taskKey, sample.Input, configKey, res.Output, duration.Seconds(), params)
			statsMu.Lock()
			stats.Executed++
			statsMu.Unlock()
			fmt.Fprintf(out, "%s [%d/%d] %s ✓ %.2fs | %d → %d chars\n",
				modelTag, i+1, len(samples), progress, duration.Seconds(), inputLen, len(res.Output))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outputs, stats, ScoreSummary{}, nil, err
	}

	c.Checkpoint()
	fmt.Fprintf(out, "\n%s Stats: %d executed, %d cached, %d errors\n",
		modelTag, stats.Executed, stats.Cached, stats.Errors)

	metricName := task.MetricName()
	fmt.Fprintf(out, "%s Calculating %s...\n", modelTag, metricName)
	scores, err := ComputeScoresCached(task, samples, outputs, c, out)
	if err != nil {
		return outputs, stats, ScoreSummary{}, nil, fmt.Errorf("compute %s scores: %w", metricName, err)
	}
	summary := AggregateScores(scores)

	printExamples(out, modelTag, metricName, samples, outputs, scores)
	c.Checkpoint()
	return outputs, stats, summary, scores, nil
}

// ComputeScoresCached computes per-sample scores with a read-through score
// cache: check the cache per sample, batch-compute the misses through
// Task.ComputeScores, store the new scores, and merge.
//
// The score cache is a layered use of the same store: its namespace is
// "<task>_<metric>" and its input text is the sample-triple hash rather
// than the raw input.
func ComputeScoresCached(task Task, samples []Sample, outputs []string, c *cache.Cache, out io.Writer) ([]*float64, error) {
	n := len(samples)
	scores := make([]*float64, n)
	metricName := task.MetricName()
	taskKey := task.Name() + "_" + metricName

	var uncachedIdx []int
	var uncachedSamples []Sample
	var uncachedOutputs []string

	for i, sample := range samples {
		if outputs[i] == "" {
			continue
		}
		hash := ScoreSampleHash(sample.Input, outputs[i], sample.Reference)
		if val, _, ok := c.Lookup(taskKey, hash, metricName, nil); ok {
			if v, err := strconv.ParseFloat(val, 64); err == nil {
				scores[i] = &v
				continue
			}
		}
		uncachedIdx = append(uncachedIdx, i)
		uncachedSamples = append(uncachedSamples, sample)
		uncachedOutputs = append(uncachedOutputs, outputs[i])
	}

	if len(uncachedSamples) > 0 {
		fmt.Fprintf(out, "  Computing %d uncached %s scores...\n", len(uncachedSamples), metricName)
		newScores, err := task.ComputeScores(uncachedSamples, uncachedOutputs)
		if err != nil {
			return nil, err
		}
		for j, i := range uncachedIdx {
			if j >= len(newScores) || newScores[j] == nil {
				continue
			}
			scores[i] = newScores[j]
			hash := ScoreSampleHash(uncachedSamples[j].Input, uncachedOutputs[j], uncachedSamples[j].Reference)
			c.Store(taskKey, hash, metricName, strconv.FormatFloat(*newScores[j], 'f', -1, 64), 0, nil)
		}
	}

	if cached := n - len(uncachedIdx) - countEmpty(outputs); cached > 0 {
		fmt.Fprintf(out, "  Used %d cached %s scores\n", cached, metricName)
	}
	return scores, nil
}

func countEmpty(outputs []string) int {
	n := 0
	for _, o := range outputs {
		if o == "" {
			n++
		}
	}
	return n
}

func printExamples(out io.Writer, modelTag, metricName string, samples []Sample, outputs []string, scores []*float64) {
	fmt.Fprintf(out, "\n%s Examples:\n", modelTag)
	for i := 0; i < len(samples) && i < 3; i++ {
		scoreStr := metricName + ": N/A"
		if scores[i] != nil {
			scoreStr = fmt.Sprintf("%s: %.3f", metricName, *scores[i])
		}
		fmt.Fprintf(out, "\n  [%d] %s\n", i+1, scoreStr)
		fmt.Fprintf(out, "      Input:     %s\n", oneLine(samples[i].Input, 300))
		fmt.Fprintf(out, "      Reference: %s\n", oneLine(samples[i].Reference, 200))
		output := outputs[i]
		if output == "" {
			output = "(none)"
		}
		fmt.Fprintf(out, "      Output:    %s\n", oneLine(output, 200))
	}
}

func oneLine(s string, max int) string {
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		flat = append(flat, r)
	}
	return preview(string(flat), max)
}
