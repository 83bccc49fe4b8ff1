package bench

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mt-bench/mt-bench/bench/cache"
)

// evalTask echoes inputs uppercased and counts Run and ComputeScores calls.
type evalTask struct {
	runs       atomic.Int64
	scoreCalls atomic.Int64
	failOn     string // input that should error
}

func (e *evalTask) Name() string { return "translate" }

func (e *evalTask) Run(ctx context.Context, text string, cfg *Config) (*TaskResult, error) {
	e.runs.Add(1)
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("connection refused")
	}
	return &TaskResult{Output: strings.ToUpper(text)}, nil
}

func (e *evalTask) LoadEvalData(n int) ([]Sample, error) { return nil, nil }

func (e *evalTask) ComputeScores(samples []Sample, outputs []string) ([]*float64, error) {
	e.scoreCalls.Add(1)
	scores := make([]*float64, len(samples))
	for i := range samples {
		if outputs[i] == "" {
			continue
		}
		v := ChrF(outputs[i], samples[i].Reference)
		scores[i] = &v
	}
	return scores, nil
}

func (e *evalTask) CacheKey() string       { return "translate_en_de" }
func (e *evalTask) Params() map[string]any { return map[string]any{"target_lang": "de"} }
func (e *evalTask) MetricName() string     { return "chrf" }
func (e *evalTask) FormatProgress() string { return "en->de" }

func evalSamplesFixture() []Sample {
	return []Sample{
		{Input: "hello", Reference: "HELLO"},
		{Input: "world", Reference: "WORLD"},
		{Input: "again", Reference: "AGAIN"},
	}
}

func evalConfig() *Config {
	cfg := DefaultConfig()
	cfg.Model = "test-model"
	cfg.Endpoint = "http://localhost:9"
	return cfg
}

func TestRunModelEval_ExecutesThenCaches(t *testing.T) {
	c := cache.Open(filepath.Join(t.TempDir(), "cache.db"), false)
	defer c.Close()
	cfg := evalConfig()
	samples := evalSamplesFixture()

	// First pass executes everything.
	task1 := &evalTask{}
	outputs, stats, summary, scores, err := RunModelEval(context.Background(), task1, samples, cfg, c, 2, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, EvalStats{Executed: 3}, stats)
	assert.Equal(t, []string{"HELLO", "WORLD", "AGAIN"}, outputs)
	assert.Equal(t, int64(3), task1.runs.Load())
	require.Len(t, scores, 3)
	assert.Equal(t, 3, summary.N)
	assert.InDelta(t, 1.0, summary.Score, 1e-9) // outputs match references exactly

	// Second pass over the same cache executes nothing.
	task2 := &evalTask{}
	outputs2, stats2, summary2, _, err := RunModelEval(context.Background(), task2, samples, cfg, c, 2, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, EvalStats{Cached: 3}, stats2)
	assert.Equal(t, outputs, outputs2)
	assert.Equal(t, int64(0), task2.runs.Load())
	assert.Equal(t, summary.Score, summary2.Score)
	// Scores came from the score cache, so no recomputation either.
	assert.Equal(t, int64(0), task2.scoreCalls.Load())
}

func TestRunModelEval_PerSampleFailuresDoNotAbort(t *testing.T) {
	c := cache.Open("", false) // disabled cache
	cfg := evalConfig()
	task := &evalTask{failOn: "world"}

	outputs, stats, summary, scores, err := RunModelEval(context.Background(), task, evalSamplesFixture(), cfg, c, 1, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, EvalStats{Executed: 2, Errors: 1}, stats)
	assert.Equal(t, "", outputs[1], "failed sample has no output")
	assert.Nil(t, scores[1], "failed sample has no score")
	assert.Equal(t, 2, summary.N)
}

func TestRunModelEval_DisabledCacheNeverCaches(t *testing.T) {
	c := cache.Open("", false)
	cfg := evalConfig()
	samples := evalSamplesFixture()

	for pass := 0; pass < 2; pass++ {
		task := &evalTask{}
		_, stats, _, _, err := RunModelEval(context.Background(), task, samples, cfg, c, 2, io.Discard)
		require.NoError(t, err)
		assert.Equal(t, EvalStats{Executed: 3}, stats)
	}
}

func TestComputeScoresCached_RoundTrip(t *testing.T) {
	c := cache.Open(filepath.Join(t.TempDir(), "cache.db"), false)
	defer c.Close()
	samples := evalSamplesFixture()
	outputs := []string{"HELLO", "", "AGAIN"}

	task := &evalTask{}
	scores, err := ComputeScoresCached(task, samples, outputs, c, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.scoreCalls.Load())
	require.Len(t, scores, 3)
	assert.NotNil(t, scores[0])
	assert.Nil(t, scores[1], "missing output is never scored")
	assert.NotNil(t, scores[2])

	// Second call hits the score cache for every scored sample.
	task2 := &evalTask{}
	scores2, err := ComputeScoresCached(task2, samples, outputs, c, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, int64(0), task2.scoreCalls.Load())
	assert.Equal(t, *scores[0], *scores2[0])
	assert.Equal(t, *scores[2], *scores2[2])
}

func TestScoreSampleHash(t *testing.T) {
	h := ScoreSampleHash("src", "hyp", "ref")
	assert.Len(t, h, 32)
	assert.Equal(t, h, ScoreSampleHash("src", "hyp", "ref"))
	assert.NotEqual(t, h, ScoreSampleHash("src", "hyp2", "ref"))

	// Only the first 200 characters of each component participate.
	long := strings.Repeat("x", 200)
	assert.Equal(t,
		ScoreSampleHash(long+"tail-a", "hyp", "ref"),
		ScoreSampleHash(long+"tail-b", "hyp", "ref"))
}

func TestAggregateScores(t *testing.T) {
	a, b := 0.5, 0.7
	sum := AggregateScores([]*float64{&a, nil, &b})
	assert.Equal(t, 2, sum.N)
	assert.InDelta(t, 0.6, sum.Score, 1e-9)

	empty := AggregateScores([]*float64{nil, nil})
	assert.Zero(t, empty.N)
}
