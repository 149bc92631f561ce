// Package report runs every benchmark, aggregates per-benchmark outcomes and
// renders the final report.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/benchgate/benchmark"
	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/metrics"
	"github.com/c360studio/benchgate/results"
	"github.com/c360studio/benchgate/runner"
)

// ErrNoBenchmarks is returned when discovery finds nothing to run.
var ErrNoBenchmarks = errors.New("no benchmarks found")

// NoTestsMessage is attached to benchmarks without test cases.
const NoTestsMessage = "No test cases found"

// Status of a benchmark.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusNoTests Status = "no_tests"
)

// CaseResult is one test case in a benchmark report.
type CaseResult struct {
	TestCase string `json:"test_case"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
}

// BenchmarkReport aggregates one benchmark. Passed+Failed == Total; a
// no_tests report has Total 0.
type BenchmarkReport struct {
	Benchmark string       `json:"benchmark"`
	Status    Status       `json:"status"`
	Total     int          `json:"total"`
	Passed    int          `json:"passed"`
	Failed    int          `json:"failed"`
	Message   string       `json:"message,omitempty"`
	TestCases []CaseResult `json:"test_cases"`
}

// Summary is the outcome of a full sweep.
type Summary struct {
	RunID           string            `json:"run_id"`
	StartedAt       string            `json:"started_at"`
	FinishedAt      string            `json:"finished_at"`
	Endpoint        string            `json:"endpoint"`
	TimeoutSeconds  int               `json:"timeout_seconds"`
	Benchmarks      []BenchmarkReport `json:"benchmarks"`
	TotalBenchmarks int               `json:"total_benchmarks"`
	TotalCalls      int               `json:"total_calls"`
	Passed          int               `json:"passed"`
	Failed          int               `json:"failed"`
	ResultsDir      string            `json:"results_dir"`
	Interrupted     bool              `json:"interrupted,omitempty"`
}

// AllPassed reports whether no executed test case failed and the sweep ran
// to completion.
func (s Summary) AllPassed() bool {
	if s.Failed > 0 || s.Interrupted {
		return false
	}
	for _, b := range s.Benchmarks {
		if b.Status == StatusFailed {
			return false
		}
	}
	return true
}

// StatusCounts returns how many benchmarks ended in each status.
func (s Summary) StatusCounts() map[string]int {
	counts := map[string]int{}
	for _, b := range s.Benchmarks {
		counts[string(b.Status)]++
	}
	return counts
}

// ExitCode maps a sweep to the process exit code.
func ExitCode(summary Summary, err error) int {
	if err != nil || !summary.AllPassed() {
		return 1
	}
	return 0
}

// Reporter receives progress while a sweep runs.
type Reporter interface {
	Start(summary Summary, benchmarks []string, warnings []string)
	Benchmark(report BenchmarkReport)
	Finish(summary Summary)
}

// Aggregator runs all benchmarks sequentially through an Isolator.
type Aggregator struct {
	cfg      *config.Config
	catalog  *benchmark.Catalog
	isolator runner.Isolator
	reporter Reporter
	recorder *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
	runID    string
	results  string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(a *Aggregator) {
		a.reporter = r
	}
}

// WithRecorder records metrics for every test case.
func WithRecorder(r *metrics.Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithClock sets the time source for summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithRunID sets the run id reported in the summary.
func WithRunID(id string) Option {
	return func(a *Aggregator) {
		a.runID = id
	}
}

// WithResultsDir sets the results directory reported in the summary.
func WithResultsDir(dir string) Option {
	return func(a *Aggregator) {
		a.results = dir
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg *config.Config, catalog *benchmark.Catalog, isolator runner.Isolator, opts ...Option) *Aggregator {
	a := &Aggregator{
		cfg:      cfg,
		catalog:  catalog,
		isolator: isolator,
		reporter: nopReporter{},
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunAll checks the configuration, then runs every test case of every
// benchmark. Configuration errors and ErrNoBenchmarks abort before any
// request is made. A cancelled context stops the sweep before the next
// test case.
func (a *Aggregator) RunAll(ctx context.Context) (Summary, error) {
	warnings, err := config.Check(a.cfg)
	if err != nil {
		return Summary{}, err
	}
	for _, w := range warnings {
		a.logger.Warn(w)
	}

	names, err := a.catalog.ListBenchmarks()
	if err != nil {
		return Summary{}, fmt.Errorf("discover benchmarks: %w", err)
	}
	if len(names) == 0 {
		return Summary{}, ErrNoBenchmarks
	}

	summary := Summary{
		RunID:          a.runID,
		StartedAt:      results.Timestamp(a.now()),
		Endpoint:       a.cfg.Endpoint.URL,
		TimeoutSeconds: a.cfg.Endpoint.EffectiveTimeout(),
		ResultsDir:     a.results,
		Benchmarks:     []BenchmarkReport{},
	}
	a.reporter.Start(summary, names, warnings)

	for _, name := range names {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		br := a.runBenchmark(ctx, name)
		if ctx.Err() != nil {
			summary.Interrupted = true
		}
		summary.add(br)
		a.reporter.Benchmark(br)
	}

	summary.FinishedAt = results.Timestamp(a.now())
	a.recorder.SetBenchmarks(summary.StatusCounts())
	a.reporter.Finish(summary)

	a.logger.Info("Sweep finished",
		"benchmarks", summary.TotalBenchmarks,
		"calls", summary.TotalCalls,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"interrupted", summary.Interrupted)
	return summary, nil
}

func (s *Summary) add(br BenchmarkReport) {
	s.Benchmarks = append(s.Benchmarks, br)
	s.TotalBenchmarks++
	if br.Status == StatusNoTests {
		return
	}
	s.TotalCalls += br.Total
	s.Passed += br.Passed
	s.Failed += br.Failed
}

func (a *Aggregator) runBenchmark(ctx context.Context, name string) BenchmarkReport {
	br := BenchmarkReport{Benchmark: name, TestCases: []CaseResult{}}

	ids, err := a.catalog.ListTestCases(name)
	if err != nil {
		a.logger.Warn("Failed to list test cases", "benchmark", name, "error", err)
		br.Status = StatusFailed
		br.Message = err.Error()
		return br
	}
	if len(ids) == 0 {
		br.Status = StatusNoTests
		br.Message = NoTestsMessage
		return br
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		res := a.isolator.Run(ctx, name, id)
		br.TestCases = append(br.TestCases, CaseResult{TestCase: id, Passed: res.Passed, Message: res.Message})
		br.Total++
		if res.Passed {
			br.Passed++
		} else {
			br.Failed++
		}

		var responseTime *float64
		if res.Verdict != nil {
			responseTime = res.Verdict.ResponseTime
		}
		a.recorder.ObserveTestCase(name, res.Passed, responseTime)
	}

	br.Status = StatusPassed
	if br.Failed > 0 {
		br.Status = StatusFailed
	}
	return br
}

type nopReporter struct{}

func (nopReporter) Start(Summary, []string, []string) {}
func (nopReporter) Benchmark(BenchmarkReport)         {}
func (nopReporter) Finish(Summary)                    {}
