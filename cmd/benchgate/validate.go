package main

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/benchgate/report"
	"github.com/c360studio/benchgate/runner"
	"github.com/spf13/cobra"
)

const validateUsage = "Usage: benchgate validate --benchmark <name> <test-id>"

func validateCmd(opts *options) *cobra.Command {
	var (
		benchmarkName string
		outputJSON    bool
		runID         string
	)

	cmd := &cobra.Command{
		Use:   "validate --benchmark <name> <test-id>",
		Short: "Validate one test case against the endpoint",
		Long: `Send one test case to the configured endpoint, validate the response and
write its artifacts. Exits 0 when the test case passed and 1 otherwise.

Offline benchmarks (mode: offline) validate the recorded output instead and
need no configuration file.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				fmt.Fprintln(opts.stderr, validateUsage)
				return &exitError{code: 1, err: fmt.Errorf("accepts 1 test case id, received %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, false)
			if err != nil {
				return configFailure(opts, err)
			}
			defer app.Close()

			var runOpts []runner.Option
			if runID != "" {
				runOpts = append(runOpts, runner.WithRunID(runID))
			}
			res := app.newRunner(runOpts...).Run(cmd.Context(), benchmarkName, args[0])

			if outputJSON {
				enc := json.NewEncoder(opts.stdout)
				enc.SetEscapeHTML(false)
				if err := enc.Encode(res); err != nil {
					return fmt.Errorf("encode result: %w", err)
				}
			} else {
				mark := report.NewTextReporter(opts.stdout, opts.noColor).Mark(res.Passed)
				fmt.Fprintf(opts.stdout, "%s %s: %s\n", mark, res.TestCase, res.Message)
			}

			if !res.Passed {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&benchmarkName, "benchmark", "b", "", "Benchmark name")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print the result as JSON")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id recorded in the audit record")
	_ = cmd.Flags().MarkHidden("run-id")
	_ = cmd.MarkFlagRequired("benchmark")

	return cmd
}
