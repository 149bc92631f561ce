// Package publish announces written verdicts on a message bus so dashboards
// can follow a sweep while it runs.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/results"
	"github.com/nats-io/nats.go"
)

// Publisher sends a verdict somewhere. Failures never change the verdict.
type Publisher interface {
	Publish(ctx context.Context, benchmark string, v results.Verdict) error
	Close() error
}

// Nop discards verdicts.
type Nop struct{}

func (Nop) Publish(context.Context, string, results.Verdict) error { return nil }
func (Nop) Close() error                                          { return nil }

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Message is the JSON payload published for each verdict.
type Message struct {
	Benchmark string          `json:"benchmark"`
	Verdict   results.Verdict `json:"verdict"`
}

// NATS publishes verdicts to <prefix>.<benchmark>.<test_case>.
type NATS struct {
	conn   Conn
	prefix string
	logger *slog.Logger
}

// NewNATS wraps an established connection.
func NewNATS(conn Conn, prefix string, logger *slog.Logger) *NATS {
	if prefix == "" {
		prefix = config.DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{conn: conn, prefix: prefix, logger: logger}
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, logger *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("benchgate"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return NewNATS(conn, prefix, logger), nil
}

// New returns a NATS publisher when cfg names a server, otherwise Nop.
func New(cfg config.PublishConfig, logger *slog.Logger) (Publisher, error) {
	if cfg.NATSURL == "" {
		return Nop{}, nil
	}
	return Connect(cfg.NATSURL, cfg.SubjectPrefix, logger)
}

// Subject returns the subject for a test case.
func (n *NATS) Subject(benchmark, testCase string) string {
	return n.prefix + "." + token(benchmark) + "." + token(testCase)
}

// Publish implements Publisher. The message is flushed before returning.
func (n *NATS) Publish(ctx context.Context, benchmark string, v results.Verdict) error {
	data, err := json.Marshal(Message{Benchmark: benchmark, Verdict: v})
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	subject := n.Subject(benchmark, v.TestCase)
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	n.logger.Debug("Published verdict", "subject", subject, "passed", v.Passed)
	return nil
}

// Close drains the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "/", "_", "\\", "_")

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}
