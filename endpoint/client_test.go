package endpoint_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/c360studio/benchgate/endpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func TestClient_Send_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "text/plain", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "prompt\ninput", string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Trace", "abc")
		_, _ = w.Write([]byte(`{"result": ["a", "b"], "score": 0.75}`))
	}))
	defer server.Close()

	client := endpoint.NewClient()
	out := client.Send(context.Background(), endpoint.Request{
		URL:            server.URL,
		Token:          "secret",
		Payload:        "prompt\ninput",
		TimeoutSeconds: 5,
	})

	success, ok := out.(endpoint.Success)
	require.True(t, ok, "expected Success, got %T", out)
	assert.Equal(t, http.StatusOK, success.StatusCode)
	assert.GreaterOrEqual(t, success.ElapsedSeconds, 0.0)
	assert.Equal(t, "abc", success.Headers["X-Trace"])
	require.Nil(t, success.Body.ParseError)

	doc, ok := success.Body.Value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, doc["result"])
	assert.Equal(t, json.Number("0.75"), doc["score"])
	assert.Empty(t, endpoint.ErrorMessage(out))
}

func TestClient_Send_HTTPErrorIsStillSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail": "boom"}`))
	}))
	defer server.Close()

	out := endpoint.NewClient().Send(context.Background(), endpoint.Request{URL: server.URL, Token: "t", TimeoutSeconds: 5})

	success, ok := out.(endpoint.Success)
	require.True(t, ok, "expected Success, got %T", out)
	assert.Equal(t, http.StatusInternalServerError, success.StatusCode)
	assert.Equal(t, map[string]any{"detail": "boom"}, success.Body.Value)
}

func TestClient_Send_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	out := endpoint.NewClient().Send(context.Background(), endpoint.Request{URL: server.URL, Token: "t", TimeoutSeconds: 5})

	success, ok := out.(endpoint.Success)
	require.True(t, ok, "malformed JSON must not be a transport failure, got %T", out)
	require.NotNil(t, success.Body.ParseError)
	assert.Equal(t, endpoint.InvalidJSONReason, success.Body.ParseError.Reason)
	assert.Equal(t, "not json at all", success.Body.ParseError.RawText)
	assert.False(t, success.Body.IsNull())

	data, err := json.Marshal(success.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error": "Invalid JSON response", "raw_response": "not json at all"}`, string(data))
}

func TestClient_Send_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	out := endpoint.NewClient().Send(context.Background(), endpoint.Request{URL: url, Token: "t", TimeoutSeconds: 5})

	transportErr, ok := out.(endpoint.TransportError)
	require.True(t, ok, "expected TransportError, got %T", out)
	assert.NotEmpty(t, transportErr.Message)
	assert.GreaterOrEqual(t, transportErr.ElapsedSeconds, 0.0)
	assert.Equal(t, transportErr.Message, endpoint.ErrorMessage(out))
}

func TestClient_Send_InvalidURL(t *testing.T) {
	out := endpoint.NewClient().Send(context.Background(), endpoint.Request{URL: "http://[::1", Token: "t", TimeoutSeconds: 5})

	_, ok := out.(endpoint.TransportError)
	assert.True(t, ok, "expected TransportError, got %T", out)
}

func TestClient_Send_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	out := endpoint.NewClient().Send(context.Background(), endpoint.Request{URL: server.URL, Token: "t", TimeoutSeconds: 1})

	timeout, ok := out.(endpoint.Timeout)
	require.True(t, ok, "expected Timeout, got %T", out)
	assert.Equal(t, 1, timeout.LimitSeconds)
	assert.InDelta(t, 1.0, timeout.ElapsedSeconds, 0.5)
	assert.Equal(t, "Request timed out after 1 seconds", endpoint.ErrorMessage(out))
}

func TestClient_Send_TimeoutIsCapped(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		deadline, hasDeadline = r.Context().Deadline()
		return nil, context.DeadlineExceeded
	})

	client := endpoint.NewClient(
		endpoint.WithHTTPClient(&http.Client{Transport: transport}),
		endpoint.WithClock(steppingClock(1500*time.Millisecond)),
	)
	before := time.Now()
	out := client.Send(context.Background(), endpoint.Request{URL: "https://x/y", Token: "t", TimeoutSeconds: 400})

	timeout, ok := out.(endpoint.Timeout)
	require.True(t, ok, "expected Timeout, got %T", out)
	assert.Equal(t, 300, timeout.LimitSeconds)
	assert.Equal(t, 1.5, timeout.ElapsedSeconds)

	require.True(t, hasDeadline)
	assert.WithinDuration(t, before.Add(300*time.Second), deadline, 5*time.Second)
}

func TestClient_Send_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	out := endpoint.NewClient().Send(ctx, endpoint.Request{URL: server.URL, Token: "t", TimeoutSeconds: 5})

	_, ok := out.(endpoint.TransportError)
	assert.True(t, ok, "expected TransportError, got %T", out)
}

func TestParseBody(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNull  bool
		wantError bool
	}{
		{name: "object", input: `{"a": 1}`},
		{name: "array with whitespace", input: "  [1, 2]\n"},
		{name: "null", input: `null`, wantNull: true},
		{name: "empty", input: ``, wantError: true},
		{name: "trailing data", input: `{"a": 1} {"b": 2}`, wantError: true},
		{name: "truncated", input: `{"a": `, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := endpoint.ParseBody([]byte(tt.input))
			assert.Equal(t, tt.wantError, body.ParseError != nil)
			assert.Equal(t, tt.wantNull, body.IsNull())
			if tt.wantError {
				assert.Equal(t, tt.input, body.ParseError.RawText)
				assert.Equal(t, map[string]any{
					"error":        endpoint.InvalidJSONReason,
					"raw_response": tt.input,
				}, body.Document())
			}
		})
	}
}
