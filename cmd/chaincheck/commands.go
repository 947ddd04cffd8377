package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"chaincheck/internal/harness"
	"chaincheck/pkg/history"
	"chaincheck/pkg/logx"
	"chaincheck/pkg/metrics"
	"chaincheck/pkg/preflight"
	"chaincheck/pkg/providers"
	"chaincheck/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func newPreflightCommand(f *flags, exitCode *int) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Run only the dependency probe and print every check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}

			results := preflight.New(providers.Default()).Run(cmd.Context(), cfg)
			fmt.Fprint(cmd.OutOrStdout(), preflight.FormatResults(results))
			if !results.Passed {
				*exitCode = harness.ExitDependency
			}
			return nil
		},
	}
}

func newHistoryCommand(f *flags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded with --history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("no history database configured (use --history)")
			}

			store, err := history.Open(cfg.HistoryDB)
			if err != nil {
				return logx.Wrap(err, "open run history")
			}
			defer func() { _ = store.Close() }()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tPROVIDER\tMODEL\tEXIT\tDURATION\tFAILED STAGES")
			for i := range runs {
				r := runs[i]
				model := r.Model
				if r.UsedDefault {
					model += " (default)"
				}
				if model == "" {
					model = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime),
					r.Provider,
					model,
					r.ExitCode,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					failedStages(r.Stages),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func failedStages(stages []history.Stage) string {
	var out string
	for _, s := range stages {
		if s.Status != string(harness.StatusFail) {
			continue
		}
		if out != "" {
			out += ","
		}
		out += s.Name
	}
	if out == "" {
		return "-"
	}
	return out
}

func newStatsCommand() *cobra.Command {
	var prometheusURL string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize pushed run metrics from Prometheus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if prometheusURL == "" {
				return errors.New("--prometheus is required")
			}

			q, err := metrics.NewQueryService(prometheusURL)
			if err != nil {
				return err
			}

			usage, err := q.UsageByModel(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tREQUESTS\tFAILURES\tPROMPT TOKENS\tCOMPLETION TOKENS\tTOTAL TOKENS")
			for _, u := range usage {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
					u.Model, u.Requests, u.Failures, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			code, ok, err := q.LastExitCode(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(out, "\nLast exit code: %d\n", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prometheusURL, "prometheus", "", "Prometheus server URL")
	return cmd
}
