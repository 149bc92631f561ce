// Package runner executes one test case end to end: it builds the request,
// calls the endpoint, persists the exchange, validates the response and
// writes exactly one verdict.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/benchgate/benchmark"
	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/endpoint"
	"github.com/c360studio/benchgate/publish"
	"github.com/c360studio/benchgate/results"
	"github.com/c360studio/benchgate/schema"
	"github.com/google/uuid"
)

// Messages shared with callers that inspect results.
const (
	NoEndpointMessage     = "No endpoint configured"
	OfflinePassedMessage  = "Test case passed (schema validation only)"
	requestFailedPrefix   = "API request failed: "
	validationErrorPrefix = "Validation error: "
)

// Sender sends one request to the endpoint under test.
type Sender interface {
	Send(ctx context.Context, req endpoint.Request) endpoint.Outcome
}

// Result is the outcome of one test case as reported to the caller.
type Result struct {
	Benchmark string           `json:"benchmark"`
	TestCase  string           `json:"test_case"`
	Passed    bool             `json:"passed"`
	Message   string           `json:"message"`
	Verdict   *results.Verdict `json:"verdict,omitempty"`
}

// Runner runs test cases against a single endpoint configuration.
type Runner struct {
	endpoint  *config.EndpointConfig
	catalog   *benchmark.Catalog
	store     *results.Store
	sender    Sender
	publisher publish.Publisher
	logger    *slog.Logger
	now       func() time.Time
	runID     string
}

// Option configures a Runner.
type Option func(*Runner)

// WithSender replaces the HTTP endpoint client.
func WithSender(s Sender) Option {
	return func(r *Runner) {
		r.sender = s
	}
}

// WithPublisher publishes every written verdict.
func WithPublisher(p publish.Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithClock sets the time source for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunID tags audit records with an existing run id.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = id
	}
}

// New creates a Runner. cfg may be nil or carry no endpoint; API test cases
// then fail with NoEndpointMessage.
func New(cfg *config.Config, catalog *benchmark.Catalog, store *results.Store, opts ...Option) *Runner {
	r := &Runner{
		catalog:   catalog,
		store:     store,
		publisher: publish.Nop{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	if cfg != nil {
		r.endpoint = cfg.Endpoint
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.sender == nil {
		r.sender = endpoint.NewClient(endpoint.WithLogger(r.logger))
	}
	if r.runID == "" {
		r.runID = uuid.New().String()
	}
	return r
}

// RunID returns the id recorded in audit records.
func (r *Runner) RunID() string {
	return r.runID
}

// stepErr ends a test case. Reason is recorded as the verdict error; message,
// when set, replaces it in the caller-facing result.
type stepErr struct {
	reason       string
	message      string
	responseTime *float64
}

func (e *stepErr) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.reason
}

// unexpected turns any other error into a validation error.
func unexpected(err error) *stepErr {
	var se *stepErr
	if errors.As(err, &se) {
		return se
	}
	return &stepErr{reason: validationErrorPrefix + err.Error()}
}

// passed is the successful terminal state of a test case.
type passed struct {
	message      string
	responseTime *float64
}

// Run executes testCase of the named benchmark. It never panics and, once the
// benchmark resolves, always persists a verdict.
func (r *Runner) Run(ctx context.Context, name, testCase string) (res Result) {
	res = Result{Benchmark: name, TestCase: testCase}

	b, err := r.catalog.Get(name)
	if err != nil {
		res.Message = validationErrorPrefix + err.Error()
		return res
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Test case panicked", "benchmark", name, "test_case", testCase, "panic", p)
			res = r.finish(ctx, b, testCase, passed{}, &stepErr{reason: fmt.Sprintf("%spanic: %v", validationErrorPrefix, p)})
		}
	}()

	var done passed
	switch b.Manifest.Mode {
	case benchmark.ModeOffline:
		done, err = r.runOffline(b, testCase)
	default:
		done, err = r.runAPI(ctx, b, testCase)
	}
	return r.finish(ctx, b, testCase, done, err)
}

func (r *Runner) runAPI(ctx context.Context, b *benchmark.Benchmark, testCase string) (passed, error) {
	if r.endpoint == nil {
		return passed{}, &stepErr{reason: NoEndpointMessage}
	}

	prompt, err := b.LoadPrompt()
	if err != nil {
		return passed{}, err
	}
	input, err := loadInput(b, testCase)
	if err != nil {
		return passed{}, err
	}

	req := endpoint.Request{
		URL:            r.endpoint.URL,
		Token:          r.endpoint.Token,
		Payload:        prompt + "\n" + input,
		TimeoutSeconds: r.endpoint.EffectiveTimeout(),
	}
	outcome := r.sender.Send(ctx, req)
	elapsed := outcome.Elapsed()

	audit := results.NewAuditRecord(testCase, r.runID, req, outcome, r.now())
	if err := r.store.WriteAudit(b.Name, audit); err != nil {
		return passed{}, err
	}

	success, ok := outcome.(endpoint.Success)
	if !ok {
		msg := endpoint.ErrorMessage(outcome)
		return passed{}, &stepErr{reason: msg, message: requestFailedPrefix + msg, responseTime: &elapsed}
	}

	if !success.Body.IsNull() {
		if err := r.store.WriteBody(b.Name, testCase, success.Body); err != nil {
			return passed{}, err
		}
	}

	document, err := b.LoadSchema()
	if err != nil {
		return passed{}, err
	}
	if valid, msg := schema.Validate(success.Body.Document(), document); !valid {
		return passed{}, &stepErr{reason: msg, responseTime: &elapsed}
	}

	return passed{
		message:      fmt.Sprintf("API responded correctly in %.2fs", elapsed),
		responseTime: &elapsed,
	}, nil
}

// runOffline validates a recorded output without contacting the endpoint.
func (r *Runner) runOffline(b *benchmark.Benchmark, testCase string) (passed, error) {
	if _, err := loadInput(b, testCase); err != nil {
		return passed{}, err
	}

	data, err := b.LoadOutput(testCase)
	if err != nil {
		var notFound *benchmark.OutputNotFoundError
		if errors.As(err, &notFound) {
			return passed{}, &stepErr{reason: notFound.Error()}
		}
		return passed{}, err
	}
	value, err := endpoint.DecodeJSON(data)
	if err != nil {
		return passed{}, fmt.Errorf("parse output: %w", err)
	}

	document, err := b.LoadSchema()
	if err != nil {
		return passed{}, err
	}
	if valid, msg := schema.Validate(value, document); !valid {
		return passed{}, &stepErr{reason: msg}
	}
	return passed{message: OfflinePassedMessage}, nil
}

func loadInput(b *benchmark.Benchmark, testCase string) (string, error) {
	input, err := b.LoadInput(testCase)
	if err != nil {
		var notFound *benchmark.InputNotFoundError
		if errors.As(err, &notFound) {
			return "", &stepErr{reason: notFound.Error()}
		}
		return "", err
	}
	return input, nil
}

// finish writes the verdict for a terminal state and publishes it.
func (r *Runner) finish(ctx context.Context, b *benchmark.Benchmark, testCase string, done passed, err error) Result {
	res := Result{Benchmark: b.Name, TestCase: testCase}

	var verdict results.Verdict
	if err != nil {
		se := unexpected(err)
		verdict = results.NewVerdict(testCase, false, se.responseTime, []string{se.reason}, r.now())
		res.Message = se.Error()
	} else {
		verdict = results.NewVerdict(testCase, true, done.responseTime, nil, r.now())
		res.Passed = true
		res.Message = done.message
	}

	if werr := r.store.WriteVerdict(b.Name, verdict); werr != nil {
		r.logger.Error("Failed to write verdict", "benchmark", b.Name, "test_case", testCase, "error", werr)
		res.Passed = false
		res.Message = validationErrorPrefix + werr.Error()
		return res
	}
	res.Verdict = &verdict

	if perr := r.publisher.Publish(ctx, b.Name, verdict); perr != nil {
		r.logger.Warn("Failed to publish verdict", "benchmark", b.Name, "test_case", testCase, "error", perr)
	}

	r.logger.Debug("Test case finished",
		"benchmark", b.Name,
		"test_case", testCase,
		"passed", res.Passed)
	return res
}
