package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/c360studio/benchgate/results"
)

// Isolation names accepted by ParseIsolation.
const (
	IsolationInProcess  = "in-process"
	IsolationSubprocess = "subprocess"
)

// Isolator runs one test case inside a fault boundary: whatever happens to
// the test case, the sweep continues.
type Isolator interface {
	Run(ctx context.Context, benchmark, testCase string) Result
}

// InProcess runs test cases on the calling goroutine behind a recover.
type InProcess struct {
	Runner *Runner
}

// Run implements Isolator.
func (p InProcess) Run(ctx context.Context, benchmark, testCase string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Benchmark: benchmark,
				TestCase:  testCase,
				Message:   fmt.Sprintf("%spanic: %v", validationErrorPrefix, r),
			}
		}
	}()
	return p.Runner.Run(ctx, benchmark, testCase)
}

// Subprocess re-executes the benchgate binary once per test case:
//
//	<Executable> validate --benchmark <b> --json --run-id <id> [Args...] <test-case>
//
// A crash of the child is confined to its test case.
type Subprocess struct {
	// Executable defaults to the running binary.
	Executable string
	// Args are extra flags passed to every child, typically --config,
	// --benchmarks and --results.
	Args  []string
	RunID string
	// Store, when set, is used to read the verdict the child wrote.
	Store  *results.Store
	Logger *slog.Logger
}

// Run implements Isolator.
func (s Subprocess) Run(ctx context.Context, benchmark, testCase string) Result {
	res := Result{Benchmark: benchmark, TestCase: testCase}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	exe := s.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			res.Message = validationErrorPrefix + fmt.Sprintf("locate executable: %v", err)
			return res
		}
		exe = self
	}

	args := []string{"validate", "--benchmark", benchmark, "--json"}
	if s.RunID != "" {
		args = append(args, "--run-id", s.RunID)
	}
	args = append(args, s.Args...)
	args = append(args, "--", testCase)

	cmd := exec.CommandContext(ctx, exe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running test case in subprocess", "benchmark", benchmark, "test_case", testCase, "executable", exe)
	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			res.Message = validationErrorPrefix + runErr.Error()
			return res
		}
	}

	var child Result
	if err := json.Unmarshal(stdout.Bytes(), &child); err == nil && child.TestCase != "" {
		res.Passed = child.Passed && exitCode == 0
		res.Message = child.Message
		res.Verdict = child.Verdict
	} else {
		res.Passed = exitCode == 0
		res.Message = strings.TrimSpace(stdout.String() + "\n" + stderr.String())
		if res.Message == "" {
			res.Message = fmt.Sprintf("%sexit status %d", validationErrorPrefix, exitCode)
		}
	}

	if res.Verdict == nil && s.Store != nil {
		if v, err := s.Store.ReadVerdict(benchmark, testCase); err == nil {
			res.Verdict = &v
		}
	}
	return res
}

// ParseIsolation maps a CLI isolation name to an Isolator.
func ParseIsolation(name string, r *Runner, sub Subprocess) (Isolator, error) {
	switch name {
	case "", IsolationInProcess:
		return InProcess{Runner: r}, nil
	case IsolationSubprocess:
		if sub.RunID == "" && r != nil {
			sub.RunID = r.RunID()
		}
		return sub, nil
	default:
		return nil, fmt.Errorf("unknown isolation %q (want %s or %s)", name, IsolationInProcess, IsolationSubprocess)
	}
}
