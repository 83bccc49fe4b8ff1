package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Discipline selects how inputs are submitted to the task.
type Discipline string

const (
	// DisciplineFixed keeps exactly Concurrency requests in flight: workers
	// pull the next unclaimed index from a shared cursor.
	DisciplineFixed Discipline = "fixed"

	// DisciplineQPS submits requests at Poisson-paced arrival times with
	// rate QPS; Concurrency caps the number of outstanding requests.
	DisciplineQPS Discipline = "qps"
)

// Options configure a benchmark run.
type Options struct {
	Concurrency   int
	MaxItems      int // 0 = all inputs
	StatsInterval int // print a stats block every N completions
	Discipline    Discipline
	QPS           float64 // required iff Discipline == DisciplineQPS
	Seed          int64
	Verbose       bool
}

// Validate rejects malformed option combinations before any dispatch.
func (o *Options) Validate() error {
	if o.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if o.StatsInterval <= 0 {
		return errors.New("stats interval must be positive")
	}
	switch o.Discipline {
	case DisciplineFixed:
		return nil
	case DisciplineQPS:
		if o.QPS <= 0 {
			return errors.New("qps discipline requires a positive qps value")
		}
		return nil
	default:
		return fmt.Errorf("unknown load discipline %q", o.Discipline)
	}
}

// Runner drives a bounded list of inputs through a Task under one of the
// two dispatch disciplines and produces exactly one Result per dispatched
// input.
type Runner struct {
	task Task
	cfg  *Config
	opts Options
	out  io.Writer

	rngMu sync.Mutex
	rng   *rand.Rand

	start time.Time

	activeMu sync.Mutex
	active   int

	resultsMu sync.Mutex
	results   []Result

	inputs []string
}

// NewRunner builds a Runner. Option validation failures are fatal for the
// run and reported before any dispatch.
func NewRunner(task Task, cfg *Config, opts Options) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		task: task,
		cfg:  cfg,
		opts: opts,
		out:  os.Stdout,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}, nil
}

// SetOutput redirects the progress/stats stream (stdout by default).
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Run executes the benchmark and returns every collected Result, ordered by
// completion. Cancelling ctx stops further dispatch; requests already in
// flight drain normally and their outcomes are kept.
func (r *Runner) Run(ctx context.Context, inputs []string) ([]Result, error) {
	if r.opts.MaxItems > 0 && len(inputs) > r.opts.MaxItems {
		inputs = inputs[:r.opts.MaxItems]
	}
	r.inputs = inputs
	r.printBanner()

	r.start = time.Now()

	switch r.opts.Discipline {
	case DisciplineFixed:
		r.runFixed(ctx, inputs)
	case DisciplineQPS:
		r.runQPS(ctx, inputs)
	}

	elapsed := time.Since(r.start)
	r.resultsMu.Lock()
	results := make([]Result, len(r.results))
	copy(results, r.results)
	r.resultsMu.Unlock()

	Summarize(results, inputs, elapsed, len(inputs)).Print(r.out, true)
	return results, ctx.Err()
}

// runFixed keeps Concurrency workers pulling the next unclaimed index from
// a shared cursor until the cursor passes the end of the inputs.
func (r *Runner) runFixed(ctx context.Context, inputs []string) {
	var cursorMu sync.Mutex
	cursor := 0

	var wg sync.WaitGroup
	for w := 0; w < r.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				cursorMu.Lock()
				i := cursor
				if i >= len(inputs) {
					cursorMu.Unlock()
					return
				}
				cursor++
				cursorMu.Unlock()

				r.processItem(ctx, i, inputs[i], time.Time{})
			}
		}()
	}
	wg.Wait()
}

// runQPS submits each input at its pre-generated arrival time. If the
// scheduled time has already passed the submission is immediate; nothing is
// coalesced or dropped. A semaphore caps outstanding requests at
// Concurrency, so the run falls behind schedule under saturation instead of
// exceeding the ceiling.
func (r *Runner) runQPS(ctx context.Context, inputs []string) {
	r.rngMu.Lock()
	schedule := arrivalSchedule(r.rng, len(inputs), r.opts.QPS)
	r.rngMu.Unlock()

	sem := make(chan struct{}, r.opts.Concurrency)
	var wg sync.WaitGroup

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for i, text := range inputs {
		if wait := schedule[i] - time.Since(r.start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				wg.Wait()
				return
			}
		}
		submitTime := time.Now()

		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			r.processItem(ctx, i, text, submitTime)
		}(i, text)
	}
	wg.Wait()
}

// processItem runs one input to completion, prints its progress line, and
// appends the outcome under the results lock.
func (r *Runner) processItem(ctx context.Context, idx int, text string, submitTime time.Time) {
	if strings.Contains(text, "RANDOM_SALT") {
		r.rngMu.Lock()
		salt := r.rng.Intn(1000000)
		r.rngMu.Unlock()
		text = strings.ReplaceAll(text, "RANDOM_SALT", strconv.Itoa(salt))
	}

	var pending time.Duration
	if !submitTime.IsZero() {
		pending = time.Since(submitTime)
	}

	res := r.runSingle(ctx, idx, text, pending)
	r.printProgress(idx, text, res)

	r.resultsMu.Lock()
	r.results = append(r.results, res)
	if len(r.results)%r.opts.StatsInterval == 0 {
		snapshot := make([]Result, len(r.results))
		copy(snapshot, r.results)
		Summarize(snapshot, r.inputs, time.Since(r.start), len(r.inputs)).Print(r.out, false)
	}
	r.resultsMu.Unlock()
}

// runSingle measures one Task.Run invocation and classifies its outcome.
// An empty or whitespace-only output is a failure, not a success: a 200
// response with blank content is not a usable translation. No retries here;
// retries are a caller-level concern.
func (r *Runner) runSingle(ctx context.Context, idx int, text string, pending time.Duration) Result {
	requestStart := time.Now()

	r.activeMu.Lock()
	r.active++
	r.activeMu.Unlock()

	taskRes, err := r.task.Run(ctx, text, r.cfg)

	r.activeMu.Lock()
	r.active--
	r.activeMu.Unlock()

	duration := time.Since(requestStart)

	if err == nil && (taskRes == nil || strings.TrimSpace(taskRes.Output) == "") {
		err = errors.New("empty output received")
	}

	if err != nil {
		errStr := err.Error()
		return Result{
			Index:        idx,
			InputPreview: preview(text, 100),
			Duration:     duration,
			Success:      false,
			Err:          errStr,
			TimedOut:     strings.Contains(strings.ToLower(errStr), "timeout"),
			CompletedAt:  time.Since(r.start),
			PendingTime:  pending,
		}
	}

	return Result{
		Index:        idx,
		InputPreview: preview(text, 100),
		Duration:     duration,
		Success:      true,
		Output:       preview(taskRes.Output, 100),
		CompletedAt:  time.Since(r.start),
		PendingTime:  pending,
		Timing:       taskRes.Timing,
	}
}

// ActiveRequests reports the number of requests currently in flight.
func (r *Runner) ActiveRequests() int {
	r.activeMu.Lock()
	defer r.activeMu.Unlock()
	return r.active
}

func (r *Runner) printBanner() {
	sep := strings.Repeat("=", 70)
	fmt.Fprintf(r.out, "\n%s\n", sep)
	fmt.Fprintf(r.out, "Starting benchmark:\n")
	fmt.Fprintf(r.out, "  Task: %s (%s)\n", r.task.Name(), r.task.CacheKey())
	endpoint := r.cfg.Endpoint
	if r.cfg.UseAzure {
		endpoint += " (Azure)"
	}
	fmt.Fprintf(r.out, "  Endpoint: %s\n", endpoint)
	fmt.Fprintf(r.out, "  Model: %s\n", r.cfg.Model)
	fmt.Fprintf(r.out, "  Total items: %d\n", len(r.inputs))
	if r.opts.Discipline == DisciplineFixed {
		fmt.Fprintf(r.out, "  Load mode: fixed (%d active)\n", r.opts.Concurrency)
	} else {
		fmt.Fprintf(r.out, "  Load mode: QPS (%g queries/sec, max outstanding: %d)\n", r.opts.QPS, r.opts.Concurrency)
	}
	fmt.Fprintf(r.out, "  Timeout: %gs\n", r.cfg.Timeout)
	fmt.Fprintf(r.out, "%s\n\n", sep)
}

// printProgress emits the one-line per-request status.
func (r *Runner) printProgress(idx int, text string, res Result) {
	if !res.Success {
		marker := ""
		if res.TimedOut {
			marker = " [TIMEOUT]"
		}
		fmt.Fprintf(r.out, "[%d/%d] ✗%s %.2fs | %s\n",
			idx+1, len(r.inputs), marker, res.Duration.Seconds(), preview(res.Err, 50))
		return
	}

	speed := 0.0
	if res.Duration > 0 {
		speed = float64(len(text)) / res.Duration.Seconds()
	}

	var timingStr string
	if res.Timing != nil {
		var parts []string
		oh := res.Timing.Breakdown(res.Duration)
		if oh.Network != nil {
			parts = append(parts, fmt.Sprintf("N:%.3fs", *oh.Network))
		}
		if oh.Worker != nil {
			parts = append(parts, fmt.Sprintf("W:%.3fs", *oh.Worker))
		}
		if len(parts) > 0 {
			timingStr = " | " + strings.Join(parts, " ")
		}
	}

	var pendingStr string
	if res.PendingTime > 0 {
		pendingStr = fmt.Sprintf(" | pending: %.2fs", res.PendingTime.Seconds())
	}

	fmt.Fprintf(r.out, "[%d/%d] ✓ %.2fs%s%s | %d chars | %.0f c/s | active: %d\n",
		idx+1, len(r.inputs), res.Duration.Seconds(), pendingStr, timingStr,
		len(text), speed, r.ActiveRequests())
	if r.opts.Verbose {
		fmt.Fprintf(r.out, "  In:  %s\n", preview(text, 80))
		fmt.Fprintf(r.out, "  Out: %s\n", res.Output)
	}
}
