// Package endpoint sends benchmark payloads to a submitter endpoint and
// normalizes every result (response, timeout, transport failure) into an
// Outcome.
package endpoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/benchgate/config"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Request is one payload delivery.
type Request struct {
	URL            string
	Token          string
	Payload        string
	TimeoutSeconds int
}

// Client issues single-attempt POST requests. It never retries.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Its own Timeout, if any, still
// applies on top of the per-request limit.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithClock sets the time source used to measure elapsed time.
func WithClock(now func() time.Time) ClientOption {
	return func(client *Client) {
		client.now = now
	}
}

// NewClient creates a new endpoint client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Send posts req.Payload as plain text with a bearer token. The timeout is
// capped at config.MaxTimeoutSeconds and covers reading the body.
func (c *Client) Send(ctx context.Context, req Request) Outcome {
	limit := config.ClampTimeout(req.TimeoutSeconds)
	start := c.now()
	elapsed := func() float64 {
		return roundSeconds(c.now().Sub(start))
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(limit)*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, req.URL, strings.NewReader(req.Payload))
	if err != nil {
		return TransportError{ElapsedSeconds: elapsed(), Message: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	httpReq.Header.Set("Content-Type", "text/plain")

	c.logger.Debug("Sending request",
		"url", req.URL,
		"payload_bytes", len(req.Payload),
		"timeout_seconds", limit)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.failure(err, elapsed(), limit)
	}
	defer httpResp.Body.Close()

	// Read response body with size limit to prevent memory exhaustion
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return c.failure(err, elapsed(), limit)
	}

	out := Success{
		StatusCode:     httpResp.StatusCode,
		ElapsedSeconds: elapsed(),
		Headers:        flattenHeaders(httpResp.Header),
		Body:           ParseBody(data),
	}

	c.logger.Debug("Received response",
		"url", req.URL,
		"status", out.StatusCode,
		"elapsed_seconds", out.ElapsedSeconds,
		"json", out.Body.ParseError == nil)

	return out
}

func (c *Client) failure(err error, elapsed float64, limit int) Outcome {
	if isTimeout(err) {
		c.logger.Debug("Request timed out", "limit_seconds", limit, "elapsed_seconds", elapsed)
		return Timeout{ElapsedSeconds: elapsed, LimitSeconds: limit}
	}
	c.logger.Debug("Request failed", "error", err, "elapsed_seconds", elapsed)
	return TransportError{ElapsedSeconds: elapsed, Message: err.Error()}
}

// isTimeout reports deadline expiry. Cancellation of the parent context is
// not a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

func roundSeconds(d time.Duration) float64 {
	s := math.Round(d.Seconds()*100) / 100
	if s < 0 {
		return 0
	}
	return s
}
