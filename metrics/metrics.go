// Package metrics records sweep results as Prometheus metrics and writes them
// to a node-exporter textfile.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultPassed = "passed"
	ResultFailed = "failed"
)

// Response time buckets in seconds, up to the 300s request cap.
var responseBuckets = []float64{
	0.1, 0.25, 0.5, // Fast
	1, 2.5, 5, // Normal
	10, 30, 60, // Slow
	120, 300, // Near the cap
}

// Recorder holds a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	testCases    *prometheus.CounterVec
	responseTime *prometheus.HistogramVec
	benchmarks   *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		testCases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "benchgate_test_cases_total",
				Help: "Test cases executed, by benchmark and result",
			},
			[]string{"benchmark", "result"},
		),
		responseTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "benchgate_response_seconds",
				Help:    "Endpoint response time in seconds",
				Buckets: responseBuckets,
			},
			[]string{"benchmark"},
		),
		benchmarks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "benchgate_benchmarks",
				Help: "Benchmarks in the last sweep, by status",
			},
			[]string{"status"},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveTestCase counts one test case. responseTime is nil when no request
// completed.
func (r *Recorder) ObserveTestCase(benchmark string, passed bool, responseTime *float64) {
	if r == nil {
		return
	}
	result := ResultFailed
	if passed {
		result = ResultPassed
	}
	r.testCases.WithLabelValues(benchmark, result).Inc()
	if responseTime != nil {
		r.responseTime.WithLabelValues(benchmark).Observe(*responseTime)
	}
}

// SetBenchmarks records how many benchmarks ended in each status.
func (r *Recorder) SetBenchmarks(byStatus map[string]int) {
	if r == nil {
		return
	}
	r.benchmarks.Reset()
	for status, n := range byStatus {
		r.benchmarks.WithLabelValues(status).Set(float64(n))
	}
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
