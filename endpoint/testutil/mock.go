// Package testutil provides test utilities for code that sends requests
// through the endpoint package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/benchgate/endpoint"
)

// MockSender is a thread-safe stand-in for endpoint.Client.
// It records every request and returns configured outcomes in sequence.
//
// Usage:
//
//	mock := &MockSender{
//	    Outcomes: []endpoint.Outcome{
//	        endpoint.Success{StatusCode: 200, Body: endpoint.ParseBody([]byte(`{"result": ["x"]}`))},
//	        endpoint.Timeout{ElapsedSeconds: 30, LimitSeconds: 30},
//	    },
//	}
type MockSender struct {
	mu       sync.Mutex
	requests []endpoint.Request
	Outcomes []endpoint.Outcome // Outcomes to return in sequence
	// Panic, when set, is raised from Send instead of returning.
	Panic any
	index int
}

// Send implements the runner's sender interface.
// Once Outcomes is exhausted, an empty 200 JSON object is returned.
func (m *MockSender) Send(_ context.Context, req endpoint.Request) endpoint.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if m.Panic != nil {
		panic(m.Panic)
	}

	if m.index < len(m.Outcomes) {
		out := m.Outcomes[m.index]
		m.index++
		return out
	}

	return endpoint.Success{StatusCode: 200, Headers: map[string]string{}, Body: endpoint.Body{Value: map[string]any{}}}
}

// Requests returns every request passed to Send.
func (m *MockSender) Requests() []endpoint.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]endpoint.Request(nil), m.requests...)
}

// GetCallCount returns the number of times Send() was called.
func (m *MockSender) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// JSONSuccess builds a 200 outcome with the given JSON body text.
func JSONSuccess(body string, elapsed float64) endpoint.Success {
	return endpoint.Success{
		StatusCode:     200,
		ElapsedSeconds: elapsed,
		Headers:        map[string]string{"Content-Type": "application/json"},
		Body:           endpoint.ParseBody([]byte(body)),
	}
}
