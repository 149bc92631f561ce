package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SummaryFile is the run summary written under the results root.
const SummaryFile = "summary.json"

// Store writes artifacts under <root>/<benchmark>/. Every write replaces the
// previous artifact for the same test case.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

// Root returns the results root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the results directory of a benchmark.
func (s *Store) Dir(benchmark string) string {
	return filepath.Join(s.root, benchmark)
}

// AuditPath returns <id>_response.json.
func (s *Store) AuditPath(benchmark, testCase string) string {
	return filepath.Join(s.Dir(benchmark), filepath.FromSlash(testCase)+"_response.json")
}

// BodyPath returns <id>.json.
func (s *Store) BodyPath(benchmark, testCase string) string {
	return filepath.Join(s.Dir(benchmark), filepath.FromSlash(testCase)+".json")
}

// VerdictPath returns <id>_validation.json.
func (s *Store) VerdictPath(benchmark, testCase string) string {
	return filepath.Join(s.Dir(benchmark), filepath.FromSlash(testCase)+"_validation.json")
}

// WriteAudit persists the audit record of a test case.
func (s *Store) WriteAudit(benchmark string, rec AuditRecord) error {
	return s.write(s.AuditPath(benchmark, rec.TestCase), rec)
}

// WriteBody persists the raw response body of a test case.
func (s *Store) WriteBody(benchmark, testCase string, body any) error {
	return s.write(s.BodyPath(benchmark, testCase), body)
}

// WriteVerdict persists the verdict of a test case.
func (s *Store) WriteVerdict(benchmark string, v Verdict) error {
	return s.write(s.VerdictPath(benchmark, v.TestCase), v)
}

// WriteSummary persists a run summary under the results root.
func (s *Store) WriteSummary(summary any) error {
	return s.write(filepath.Join(s.root, SummaryFile), summary)
}

// ReadVerdict loads a previously written verdict.
func (s *Store) ReadVerdict(benchmark, testCase string) (Verdict, error) {
	var v Verdict
	data, err := os.ReadFile(s.VerdictPath(benchmark, testCase))
	if err != nil {
		return v, fmt.Errorf("read verdict: %w", err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse verdict: %w", err)
	}
	return v, nil
}

// ReadAudit loads a previously written audit record.
func (s *Store) ReadAudit(benchmark, testCase string) (AuditRecord, error) {
	var rec AuditRecord
	data, err := os.ReadFile(s.AuditPath(benchmark, testCase))
	if err != nil {
		return rec, fmt.Errorf("read audit record: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse audit record: %w", err)
	}
	return rec, nil
}

// write encodes v as indented UTF-8 JSON, creating parent directories.
func (s *Store) write(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	s.logger.Debug("Wrote artifact", "path", path)
	return nil
}
