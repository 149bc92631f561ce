package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/c360studio/benchgate/benchmark"
	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/publish"
	"github.com/c360studio/benchgate/report"
	"github.com/c360studio/benchgate/results"
	"github.com/c360studio/benchgate/runner"
)

// App wires configuration, discovery and the results store for one command.
type App struct {
	opts      *options
	cfg       *config.Config
	catalog   *benchmark.Catalog
	store     *results.Store
	publisher publish.Publisher
	logger    *slog.Logger
}

// newApp loads the configuration and builds the shared components. When
// requireConfig is false a missing config file is tolerated; the runner then
// reports API test cases as having no endpoint.
func newApp(opts *options, requireConfig bool) (*App, error) {
	logger := newLogger(opts.logLevel, opts.stderr)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).WithEnvFile(opts.envFile).Load(opts.configPath)
	if err != nil {
		if requireConfig || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		logger.Debug("No configuration file, continuing without endpoint", "error", err)
		cfg = config.DefaultConfig()
	}

	benchmarksDir := cfg.BenchmarksDir
	if opts.benchmarksDir != "" {
		benchmarksDir = opts.benchmarksDir
	}
	resultsDir := cfg.ResultsDir
	if opts.resultsDir != "" {
		resultsDir = opts.resultsDir
	}

	return &App{
		opts:      opts,
		cfg:       cfg,
		catalog:   benchmark.NewCatalog(benchmarksDir, benchmark.WithLogger(logger)),
		store:     results.NewStore(resultsDir, logger),
		publisher: publish.Nop{},
		logger:    logger,
	}, nil
}

// newRunner connects the verdict publisher, if configured, and returns a
// runner over the app's components.
func (a *App) newRunner(opts ...runner.Option) *runner.Runner {
	pub, err := publish.New(a.cfg.Publish, a.logger)
	if err != nil {
		a.logger.Warn("Verdict publishing disabled", "error", err)
		pub = publish.Nop{}
	}
	a.publisher = pub

	opts = append([]runner.Option{
		runner.WithPublisher(pub),
		runner.WithLogger(a.logger),
	}, opts...)
	return runner.New(a.cfg, a.catalog, a.store, opts...)
}

// childArgs are the flags a subprocess needs to see the same configuration.
func (a *App) childArgs() []string {
	args := []string{
		"--benchmarks=" + absPath(a.catalog.Root()),
		"--results=" + absPath(a.store.Root()),
		"--log-level=" + a.opts.logLevel,
		"--env-file=" + a.opts.envFile,
	}
	if a.opts.configPath != "" {
		args = append(args, "--config="+absPath(a.opts.configPath))
	}
	if a.opts.noColor {
		args = append(args, "--no-color")
	}
	return args
}

// Close releases the publisher connection.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Failed to close publisher", "error", err)
	}
}

// reporter returns the text or JSON reporter for the sweep.
func (a *App) reporter(outputJSON bool) report.Reporter {
	if outputJSON {
		return report.NewJSONReporter(a.opts.stdout)
	}
	return report.NewTextReporter(a.opts.stdout, a.opts.noColor)
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// configFailure prints a configuration error and returns the exit error.
func configFailure(opts *options, err error) error {
	mark := report.NewTextReporter(opts.stdout, opts.noColor).Mark(false)
	fmt.Fprintf(opts.stdout, "%s Configuration validation failed: %v\n", mark, err)
	return &exitError{code: 1}
}
