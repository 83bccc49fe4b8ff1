package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mt-bench/mt-bench/bench"
	"github.com/mt-bench/mt-bench/bench/cache"
)

var (
	// eval flags
	evalTask        string // Task to evaluate (translate, summarize)
	evalPairs       string // Comma-separated language pairs for translate
	evalLang        string // Language for summarize
	evalSamples     int    // Samples per task
	evalConcurrency int    // Concurrent requests per model
	cachePath       string // Result cache path ("" disables)
	noCache         bool   // Disable the result cache
	rewriteCache    bool   // Ignore cached values but still write new ones
	evalDataDir     string // Directory with evaluation datasets
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate output quality on reference datasets",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := buildConfig(cmd)
		tasks := buildEvalTasks()

		path := cachePath
		if noCache {
			path = ""
		}
		c := cache.Open(path, rewriteCache)
		defer c.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		type row struct {
			label  string
			metric string
			stats  bench.EvalStats
			score  bench.ScoreSummary
		}
		var rows []row

		for _, task := range tasks {
			samples, err := task.LoadEvalData(evalSamples)
			if err != nil {
				logrus.Errorf("Could not load eval data for %s: %v", task.CacheKey(), err)
				continue
			}
			if len(samples) == 0 {
				logrus.Warnf("No samples for %s", task.CacheKey())
				continue
			}
			fmt.Printf("\nEvaluating %s (%s) on %d samples\n", task.Name(), task.FormatProgress(), len(samples))

			_, stats, score, _, err := bench.RunModelEval(ctx, task, samples, cfg, c, evalConcurrency, os.Stdout)
			if err != nil {
				logrus.Errorf("Evaluation failed for %s: %v", task.CacheKey(), err)
				continue
			}
			rows = append(rows, row{task.FormatProgress(), task.MetricName(), stats, score})

			if ctx.Err() != nil {
				logrus.Warnf("Evaluation interrupted")
				break
			}
		}

		if len(rows) > 0 {
			fmt.Printf("\n%s\n", strings.Repeat("=", 70))
			fmt.Printf("EVALUATION SUMMARY [%s]\n", cfg.CacheKey())
			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  pair\tmetric\tscore\tn\texecuted\tcached\terrors")
			for _, r := range rows {
				scoreStr := "N/A"
				if r.score.N > 0 {
					scoreStr = fmt.Sprintf("%.3f", r.score.Score)
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					r.label, r.metric, scoreStr, r.score.N,
					r.stats.Executed, r.stats.Cached, r.stats.Errors)
			}
			w.Flush()
			fmt.Println(strings.Repeat("=", 70))
		}

		if s := c.Stats(""); s.Enabled {
			fmt.Printf("\nCache: %d entries, %d config identities\n", s.Count, len(s.Configs))
		}
	},
}

// buildEvalTasks expands the eval flags into one task per language pair.
func buildEvalTasks() []bench.Task {
	switch evalTask {
	case "translate":
		pairs := parsePairs(evalPairs)
		if len(pairs) == 0 {
			logrus.Fatalf("No valid language pairs in %q", evalPairs)
		}
		tasks := make([]bench.Task, 0, len(pairs))
		for _, p := range pairs {
			tasks = append(tasks, bench.NewTranslateTask(p[0], p[1], evalDataDir))
		}
		return tasks
	case "summarize":
		return []bench.Task{bench.NewSummarizeTask(evalLang, evalDataDir)}
	default:
		logrus.Fatalf("Unknown task: %s", evalTask)
		return nil
	}
}

func init() {
	evalCmd.Flags().StringVar(&evalTask, "task", "translate", "Task to evaluate (translate, summarize)")
	evalCmd.Flags().StringVar(&evalPairs, "pairs", "en-de", "Comma-separated language pairs, e.g. en-ru,en-zh")
	evalCmd.Flags().StringVar(&evalLang, "lang", "en", "Language for summarize")
	evalCmd.Flags().IntVar(&evalSamples, "n", 100, "Samples per task")
	evalCmd.Flags().IntVar(&evalConcurrency, "concurrency", 4, "Concurrent requests")
	evalCmd.Flags().StringVar(&cachePath, "cache", "task_cache.db", "Result cache path")
	evalCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the result cache")
	evalCmd.Flags().BoolVar(&rewriteCache, "rewrite", false, "Recompute results but refresh the cache")
	evalCmd.Flags().StringVar(&evalDataDir, "data-dir", "data", "Directory with evaluation datasets")
	addEndpointFlags(evalCmd)
	rootCmd.AddCommand(evalCmd)
}

// parsePairs splits "en-ru,en-zh" into language pairs.
func parsePairs(s string) [][2]string {
	var pairs [][2]string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		src, tgt, ok := strings.Cut(p, "-")
		if !ok {
			continue
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(src), strings.TrimSpace(tgt)})
	}
	return pairs
}
