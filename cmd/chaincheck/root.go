package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chaincheck/internal/harness"
	"chaincheck/pkg/config"
	"chaincheck/pkg/history"
	"chaincheck/pkg/logx"
	"chaincheck/pkg/metrics"
)

// flags mirrors the command line. Only flags the user set override the config.
type flags struct {
	configFile   string
	envFile      string
	provider     string
	models       []string
	temperature  float32
	maxTokens    int
	logLevel     string
	logJSON      bool
	verifyModels bool
	metricsFile  string
	pushgateway  string
	historyDB    string
	skipAgents   bool
}

func newRootCommand(exitCode *int, f *flags) *cobra.Command {
	root := &cobra.Command{
		Use:   "chaincheck",
		Short: "Smoke-test the prompt-chain runtime and a chat-completion provider",
		Long: `chaincheck probes that the runnable pipeline and the configured provider SDK
are linked in, runs a list transform through the pipeline, builds a model client
from an ordered preference list, and runs three prompt agents against it.

Examples:
  chaincheck
  chaincheck --model command-r --model command
  chaincheck --provider ollama --model llama3.2 --verify-models
  chaincheck --history runs.db --metrics-file /var/lib/node_exporter/chaincheck.prom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			opts := harness.Options{Config: cfg, Stdout: cmd.OutOrStdout()}

			if cfg.MetricsFile != "" || cfg.PushgatewayURL != "" {
				opts.Metrics = metrics.NewPrometheusRecorder()
			}

			if store := openHistory(cfg.HistoryDB); store != nil {
				defer func() {
					if cerr := store.Close(); cerr != nil {
						logx.Warnf("close run history: %v", cerr)
					}
				}()
				opts.History = store
			}

			*exitCode = harness.New(opts).Run(cmd.Context())
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "YAML config file (default ./"+config.DefaultConfigFile+" when present)")
	pf.StringVar(&f.envFile, "env-file", "", "dotenv file loaded before reading the environment (default .env)")
	pf.StringVar(&f.provider, "provider", "", "chat provider: cohere, openai, anthropic, google, ollama")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&f.logJSON, "log-json", false, "write logs as JSON")
	pf.StringVar(&f.historyDB, "history", "", "SQLite file recording every run")

	fl := root.Flags()
	fl.StringArrayVar(&f.models, "model", nil, "model to try, in preference order (repeatable)")
	fl.Float32Var(&f.temperature, "temperature", 0, "sampling temperature (0.0-2.0)")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "maximum tokens per completion")
	fl.BoolVar(&f.verifyModels, "verify-models", false, "look each model up remotely before selecting it")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	fl.StringVar(&f.pushgateway, "pushgateway", "", "push Prometheus metrics to this Pushgateway URL on exit")
	fl.BoolVar(&f.skipAgents, "skip-agents", false, "stop after selecting a model client")

	root.AddCommand(
		newVersionCommand(),
		newPreflightCommand(f, exitCode),
		newHistoryCommand(f),
		newStatsCommand(),
	)
	return root
}

// openHistory opens the run history store, or returns nil when none is configured
// or it cannot be opened. The run goes ahead either way.
func openHistory(path string) *history.Store {
	if path == "" {
		return nil
	}
	store, err := history.Open(path)
	if err != nil {
		logx.Warnf("running without history: %v", err)
		return nil
	}
	return store
}

// loadConfig layers flags over the file and environment configuration, validates
// it and configures logging.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	fs := cmd.Flags()
	cfg, err := config.Load(config.LoadOptions{ConfigFile: f.configFile, EnvFile: f.envFile})
	if err != nil {
		return nil, err
	}

	if fs.Changed("provider") {
		cfg.Provider = f.provider
		if !fs.Changed("model") {
			// Models from the file or environment belong to the old provider.
			cfg.Models = nil
		}
	}
	if fs.Changed("model") {
		cfg.Models = f.models
	}
	if fs.Changed("temperature") {
		cfg.Temperature = f.temperature
	}
	if fs.Changed("max-tokens") {
		cfg.MaxTokens = f.maxTokens
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("log-json") {
		cfg.LogJSON = f.logJSON
	}
	if fs.Changed("verify-models") {
		cfg.VerifyModels = f.verifyModels
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if fs.Changed("pushgateway") {
		cfg.PushgatewayURL = f.pushgateway
	}
	if fs.Changed("history") {
		cfg.HistoryDB = f.historyDB
	}
	if fs.Changed("skip-agents") {
		cfg.SkipAgents = f.skipAgents
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := logx.Level(cfg.LogLevel)
	if logx.IsDebugEnabled() && !fs.Changed("log-level") {
		// DEBUG=1 wins over the configured default.
		level = logx.LevelDebug
	}
	if err := logx.Configure(logx.Options{Writer: cmd.ErrOrStderr(), Level: level, JSON: cfg.LogJSON}); err != nil {
		return nil, err
	}
	return cfg, nil
}
