// Package results persists per-test-case artifacts: the audit record of the
// exchange, the raw response body and the validation verdict.
package results

import (
	"time"

	"github.com/c360studio/benchgate/endpoint"
)

// TimestampFormat is ISO-8601 UTC with second precision.
const TimestampFormat = "2006-01-02T15:04:05Z"

// Timestamp formats t in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// Verdict is the persisted pass/fail judgment for one test case.
type Verdict struct {
	TestCase    string `json:"test_case"`
	Passed      bool   `json:"passed"`
	SchemaValid bool   `json:"schema_valid"`
	// ResponseTime is null when no request completed.
	ResponseTime *float64 `json:"response_time"`
	Errors       []string `json:"errors"`
	Timestamp    string   `json:"timestamp"`
}

// NewVerdict builds a verdict. Passed always equals schemaValid.
func NewVerdict(testCase string, schemaValid bool, responseTime *float64, errs []string, at time.Time) Verdict {
	if errs == nil {
		errs = []string{}
	}
	return Verdict{
		TestCase:     testCase,
		Passed:       schemaValid,
		SchemaValid:  schemaValid,
		ResponseTime: responseTime,
		Errors:       errs,
		Timestamp:    Timestamp(at),
	}
}

// AuditRecord is the full request/response exchange of one test case.
type AuditRecord struct {
	TestCase  string         `json:"test_case"`
	RunID     string         `json:"run_id,omitempty"`
	Timestamp string         `json:"timestamp"`
	Request   RequestRecord  `json:"request"`
	Response  ResponseRecord `json:"response"`
}

// RequestRecord is what was sent.
type RequestRecord struct {
	URL     string `json:"url"`
	Payload string `json:"payload"`
}

// ResponseRecord is what came back, or why nothing did.
type ResponseRecord struct {
	Success      bool              `json:"success"`
	StatusCode   *int              `json:"status_code"`
	ResponseTime float64           `json:"response_time"`
	Headers      map[string]string `json:"headers"`
	Body         any               `json:"body"`
	Error        *string           `json:"error"`
}

// NewAuditRecord captures an exchange from its outcome.
func NewAuditRecord(testCase, runID string, req endpoint.Request, outcome endpoint.Outcome, at time.Time) AuditRecord {
	rec := AuditRecord{
		TestCase:  testCase,
		RunID:     runID,
		Timestamp: Timestamp(at),
		Request: RequestRecord{
			URL:     req.URL,
			Payload: req.Payload,
		},
		Response: ResponseRecord{
			ResponseTime: outcome.Elapsed(),
			Headers:      map[string]string{},
		},
	}

	switch o := outcome.(type) {
	case endpoint.Success:
		status := o.StatusCode
		rec.Response.Success = true
		rec.Response.StatusCode = &status
		if o.Headers != nil {
			rec.Response.Headers = o.Headers
		}
		rec.Response.Body = o.Body
	default:
		msg := endpoint.ErrorMessage(outcome)
		rec.Response.Error = &msg
	}
	return rec
}
