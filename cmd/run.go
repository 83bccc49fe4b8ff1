package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runQuery     string
	runQueryFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the task once on a single input and print the output",
	Run: func(cmd *cobra.Command, args []string) {
		task := buildTask()
		cfg := buildConfig(cmd)

		text := runQuery
		if runQueryFile != "" {
			data, err := os.ReadFile(runQueryFile)
			if err != nil {
				logrus.Fatalf("Could not read query file: %v", err)
			}
			text = string(data)
		}
		if text == "" {
			logrus.Fatalf("No query provided (use --query or --query-file).")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		res, err := task.Run(ctx, text, cfg)
		duration := time.Since(start)
		if err != nil {
			logrus.Fatalf("Task failed after %.2fs: %v", duration.Seconds(), err)
		}

		fmt.Println(res.Output)
		fmt.Fprintf(os.Stderr, "\n%.2fs | %d → %d chars\n", duration.Seconds(), len(text), len(res.Output))
		if res.Timing != nil {
			oh := res.Timing.Breakdown(duration)
			if oh.Network != nil {
				fmt.Fprintf(os.Stderr, "network overhead: %.3fs\n", *oh.Network)
			}
			if oh.Worker != nil {
				fmt.Fprintf(os.Stderr, "worker duration: %.3fs\n", *oh.Worker)
			}
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&benchTask, "task", "translate", "Task to run (translate, summarize)")
	runCmd.Flags().StringVar(&sourceLang, "source-lang", "en", "Source language for translate")
	runCmd.Flags().StringVar(&targetLang, "target-lang", "de", "Target language for translate")
	runCmd.Flags().StringVar(&summLang, "lang", "en", "Language for summarize")
	runCmd.Flags().StringVar(&runQuery, "query", "", "Input text")
	runCmd.Flags().StringVar(&runQueryFile, "query-file", "", "File with the input text")
	addEndpointFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
