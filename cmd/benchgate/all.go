package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/metrics"
	"github.com/c360studio/benchgate/report"
	"github.com/c360studio/benchgate/runner"
	"github.com/spf13/cobra"
)

func allCmd(opts *options) *cobra.Command {
	var (
		outputJSON   bool
		isolation    string
		metricsFile  string
		writeSummary bool
	)

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run every test case of every benchmark",
		Long: `Check the configuration, then run every test case of every benchmark in
sorted order and print a report. Exits 0 only when every executed test case
passed.

Examples:
  benchgate all
  benchgate all --json
  benchgate all --isolation subprocess
  benchgate all --metrics-file /var/lib/node_exporter/benchgate.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Handle OS signals for graceful shutdown
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := newApp(opts, true)
			if err != nil {
				return configFailure(opts, err)
			}
			defer app.Close()

			r := app.newRunner()
			iso, err := runner.ParseIsolation(isolation, r, runner.Subprocess{
				Args:   app.childArgs(),
				Store:  app.store,
				Logger: app.logger,
			})
			if err != nil {
				return err
			}

			var recorder *metrics.Recorder
			if metricsFile != "" {
				recorder = metrics.NewRecorder()
			}

			agg := report.NewAggregator(app.cfg, app.catalog, iso,
				report.WithReporter(app.reporter(outputJSON)),
				report.WithRecorder(recorder),
				report.WithLogger(app.logger),
				report.WithRunID(r.RunID()),
				report.WithResultsDir(app.store.Root()),
			)

			summary, err := agg.RunAll(ctx)
			if err != nil {
				mark := report.NewTextReporter(opts.stdout, opts.noColor).Mark(false)
				switch {
				case config.IsConfigurationError(err):
					return configFailure(opts, err)
				case errors.Is(err, report.ErrNoBenchmarks):
					fmt.Fprintf(opts.stdout, "%s No benchmarks found in %s\n", mark, app.catalog.Root())
					return &exitError{code: 1}
				default:
					return err
				}
			}

			if writeSummary {
				if err := app.store.WriteSummary(summary); err != nil {
					app.logger.Warn("Failed to write summary", "error", err)
				}
			}
			if err := recorder.WriteTextfile(metricsFile); err != nil {
				app.logger.Warn("Failed to write metrics", "path", metricsFile, "error", err)
			}

			if code := report.ExitCode(summary, nil); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output the summary as JSON")
	cmd.Flags().StringVar(&isolation, "isolation", runner.IsolationInProcess, "Test case isolation (in-process, subprocess)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().BoolVar(&writeSummary, "summary", true, "Write summary.json under the results directory")

	return cmd
}
