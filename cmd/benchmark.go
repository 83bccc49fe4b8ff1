package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mt-bench/mt-bench/bench"
)

var (
	// benchmark flags
	benchTask     string  // Task to benchmark (translate, summarize)
	sourceLang    string  // Source language code for translate
	targetLang    string  // Target language code for translate
	summLang      string  // Language for summarize
	concurrency   int     // Worker / outstanding-request ceiling
	loadMode      string  // Dispatch discipline (fixed, qps)
	qps           float64 // Arrival rate for qps mode
	statsInterval int     // Completions between stats blocks
	chunkLength   int     // Approximate chunk size in characters
	maxChunks     int     // Truncate inputs to this many items
	seed          int64   // Seed for arrival schedule and salt generation
	query         string  // Single query text, repeated as input
	queryFile     string  // File whose contents become the query
	logFile       string  // Request log to replay
	sourceURL     string  // Plain-text corpus to download and chunk
	csvPath       string  // CSV export path
	verbose       bool
	dataDir       string // Directory with evaluation datasets
)

const defaultCorpusURL = "https://www.gutenberg.org/files/2600/2600-0.txt"

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Drive load against the endpoint and measure throughput and latency",
	Run: func(cmd *cobra.Command, args []string) {
		task := buildTask()
		cfg := buildConfig(cmd)

		opts := bench.Options{
			Concurrency:   concurrency,
			MaxItems:      maxChunks,
			StatsInterval: statsInterval,
			Discipline:    bench.Discipline(loadMode),
			QPS:           qps,
			Seed:          seed,
			Verbose:       verbose,
		}
		runner, err := bench.NewRunner(task, cfg, opts)
		if err != nil {
			logrus.Fatalf("Invalid benchmark options: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		inputs, err := buildInputs(ctx)
		if err != nil {
			logrus.Fatalf("Could not prepare inputs: %v", err)
		}
		if len(inputs) == 0 {
			logrus.Fatalf("No inputs to benchmark.")
		}

		results, runErr := runner.Run(ctx, inputs)
		if runErr != nil {
			logrus.Warnf("Benchmark interrupted: %v", runErr)
		}

		if csvPath != "" {
			if maxChunks > 0 && len(inputs) > maxChunks {
				inputs = inputs[:maxChunks]
			}
			if err := bench.WriteResultsCSV(csvPath, results, inputs); err != nil {
				logrus.Errorf("Could not save CSV: %v", err)
			} else {
				fmt.Printf("\nResults saved to: %s\n", csvPath)
			}
		}
	},
}

// buildTask constructs the benchmarked task from CLI flags.
func buildTask() bench.Task {
	switch benchTask {
	case "translate":
		return bench.NewTranslateTask(sourceLang, targetLang, dataDir)
	case "summarize":
		return bench.NewSummarizeTask(summLang, dataDir)
	default:
		logrus.Fatalf("Unknown task: %s", benchTask)
		return nil
	}
}

// buildInputs prepares the benchmark inputs: an explicit query repeated,
// queries replayed from a request log, or a downloaded corpus split into
// chunks.
func buildInputs(ctx context.Context) ([]string, error) {
	switch {
	case query != "" || queryFile != "":
		text := query
		if queryFile != "" {
			data, err := os.ReadFile(queryFile)
			if err != nil {
				return nil, fmt.Errorf("read query file: %w", err)
			}
			text = string(data)
			fmt.Printf("Query from file: %s (%d chars)\n", queryFile, len(text))
		} else {
			fmt.Printf("Query from CLI (%d chars)\n", len(text))
		}
		repeat := maxChunks
		if repeat <= 0 {
			repeat = 1000
		}
		inputs := make([]string, repeat)
		for i := range inputs {
			inputs[i] = text
		}
		return inputs, nil

	case logFile != "":
		fmt.Printf("Parsing log file: %s\n", logFile)
		queries, err := bench.ParseRequestLog(logFile)
		if err != nil {
			return nil, err
		}
		var inputs []string
		for _, q := range queries {
			inputs = append(inputs, q.Texts...)
		}
		fmt.Printf("Found %d queries\n", len(inputs))
		return inputs, nil

	default:
		fmt.Printf("Downloading corpus from %s...\n", sourceURL)
		text, err := bench.DownloadText(ctx, sourceURL)
		if err != nil {
			return nil, err
		}
		inputs := bench.SplitChunks(text, chunkLength)
		fmt.Printf("Split into %d chunks\n", len(inputs))
		return inputs, nil
	}
}

func init() {
	benchmarkCmd.Flags().StringVar(&benchTask, "task", "translate", "Task to benchmark (translate, summarize)")
	benchmarkCmd.Flags().StringVar(&sourceLang, "source-lang", "en", "Source language for translate")
	benchmarkCmd.Flags().StringVar(&targetLang, "target-lang", "de", "Target language for translate")
	benchmarkCmd.Flags().StringVar(&summLang, "lang", "en", "Language for summarize")
	benchmarkCmd.Flags().IntVar(&concurrency, "concurrency", 60, "Active workers (fixed) or max outstanding requests (qps)")
	benchmarkCmd.Flags().StringVar(&loadMode, "load-mode", "fixed", "Load discipline (fixed, qps)")
	benchmarkCmd.Flags().Float64Var(&qps, "qps", 0, "Arrival rate in queries/sec (required with --load-mode=qps)")
	benchmarkCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Print stats every N completions")
	benchmarkCmd.Flags().IntVar(&chunkLength, "chunk-length", 300, "Approximate chunk length in characters")
	benchmarkCmd.Flags().IntVar(&maxChunks, "max-chunks", 0, "Limit the number of inputs (0 = all)")
	benchmarkCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for arrival schedule generation")
	benchmarkCmd.Flags().StringVar(&query, "query", "", "Benchmark a single query text")
	benchmarkCmd.Flags().StringVar(&queryFile, "query-file", "", "Benchmark the contents of a file")
	benchmarkCmd.Flags().StringVar(&logFile, "log-file", "", "Replay queries from a request log")
	benchmarkCmd.Flags().StringVar(&sourceURL, "source-url", defaultCorpusURL, "Corpus URL to download and chunk")
	benchmarkCmd.Flags().StringVar(&csvPath, "csv", "", "Export per-request results to a CSV file")
	benchmarkCmd.Flags().BoolVar(&verbose, "verbose", false, "Print inputs and outputs per request")
	benchmarkCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory with evaluation datasets")
	addEndpointFlags(benchmarkCmd)
	rootCmd.AddCommand(benchmarkCmd)
}
