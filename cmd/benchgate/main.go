// Package main provides the benchgate binary entry point.
// Benchgate sends every benchmark test case to a submitter's HTTP endpoint,
// validates the JSON responses against the benchmark schema and reports a
// pass/fail verdict per test case.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/c360studio/benchgate/config"
	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "benchgate"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries a process exit code. A nil err means the failure was
// already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := rootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

// options are the persistent flags shared by all commands.
type options struct {
	configPath    string
	benchmarksDir string
	resultsDir    string
	envFile       string
	logLevel      string
	noColor       bool

	stdout io.Writer
	stderr io.Writer
}

func rootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Benchmark endpoint validation harness",
		Long: `Benchgate validates a submitter's HTTP endpoint against benchmark suites.

For every test case it POSTs the benchmark prompt and the test input to the
configured endpoint, validates the JSON response against the benchmark
schema and writes three artifacts under the results directory:

  <id>_response.json    audit record of the request and response
  <id>.json             the response body
  <id>_validation.json  the verdict

Examples:
  benchgate all                                 # Run every benchmark
  benchgate all --json                          # Print the summary as JSON
  benchgate validate --benchmark noharm test_001
  benchgate check-config -c config.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (JSON); searched upwards from the working directory when empty")
	flags.StringVar(&opts.benchmarksDir, "benchmarks", "", "Benchmarks directory (overrides benchmarks_dir)")
	flags.StringVar(&opts.resultsDir, "results", "", "Results directory (overrides results_dir)")
	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Dotenv file loaded before the config; empty disables")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		validateCmd(opts),
		allCmd(opts),
		listCmd(opts),
		checkConfigCmd(opts),
		versionCmd(opts),
	)
	return cmd
}

func versionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.stdout, "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// newLogger builds the process logger from --log-level.
func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
