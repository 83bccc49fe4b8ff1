package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mt-bench/mt-bench/bench"
)

var (
	// Global CLI flags
	logLevel string // Log verbosity level

	// Endpoint configuration flags, shared by benchmark/eval/run
	configFile string // YAML config file path
	endpoint   string // OpenAI-compatible base URL or Azure resource URL
	model      string // Model or deployment name
	apiKey     string // API key (falls back to MTBENCH_API_KEY)
	useAzure   bool   // Use the Azure OpenAI request shape
	apiVersion string // Azure api-version
	timeout    float64
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mtbench",
	Short: "Load benchmark and quality evaluation for LLM translation endpoints",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addEndpointFlags registers the endpoint configuration flags on a command.
func addEndpointFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file with endpoint settings")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Endpoint base URL")
	cmd.Flags().StringVar(&model, "model", "", "Model or deployment name")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (default: MTBENCH_API_KEY env)")
	cmd.Flags().BoolVar(&useAzure, "azure", false, "Use Azure OpenAI request shape")
	cmd.Flags().StringVar(&apiVersion, "api-version", "", "Azure api-version")
	cmd.Flags().Float64Var(&timeout, "timeout", 90, "Per-request timeout in seconds")
}

// buildConfig assembles the endpoint Config: file values first, explicit
// flags on top.
func buildConfig(cmd *cobra.Command) *bench.Config {
	cfg := bench.DefaultConfig()
	if configFile != "" {
		if err := bench.LoadConfigFile(configFile, cfg); err != nil {
			logrus.Fatalf("Could not load config: %v", err)
		}
	}
	if cmd.Flags().Changed("endpoint") || cfg.Endpoint == "" {
		cfg.Endpoint = endpoint
	}
	if cmd.Flags().Changed("model") || cfg.Model == "" {
		cfg.Model = model
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if cmd.Flags().Changed("azure") {
		cfg.UseAzure = useAzure
	}
	if cmd.Flags().Changed("api-version") {
		cfg.APIVersion = apiVersion
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeout
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("MTBENCH_API_KEY")
	}
	if cfg.Model == "" {
		logrus.Fatalf("Model name not provided.")
	}
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
}
