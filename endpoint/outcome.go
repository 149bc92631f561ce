package endpoint

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// InvalidJSONReason is recorded when a response body is not valid JSON.
const InvalidJSONReason = "Invalid JSON response"

// Outcome is the normalized result of one request. It is exactly one of
// Success, Timeout or TransportError; callers switch on the concrete type.
type Outcome interface {
	// Elapsed is the time in seconds from request start, on every path.
	Elapsed() float64
	isOutcome()
}

// Success is any received HTTP response, whatever its status.
type Success struct {
	StatusCode     int
	ElapsedSeconds float64
	Headers        map[string]string
	Body           Body
}

// Timeout is a request that exceeded its limit.
type Timeout struct {
	ElapsedSeconds float64
	LimitSeconds   int
}

// TransportError is any other failure before a response was received.
type TransportError struct {
	ElapsedSeconds float64
	Message        string
}

func (s Success) Elapsed() float64        { return s.ElapsedSeconds }
func (t Timeout) Elapsed() float64        { return t.ElapsedSeconds }
func (e TransportError) Elapsed() float64 { return e.ElapsedSeconds }

func (Success) isOutcome()        {}
func (Timeout) isOutcome()        {}
func (TransportError) isOutcome() {}

// ErrorMessage returns the failure text for an outcome, or "" on success.
func ErrorMessage(o Outcome) string {
	switch v := o.(type) {
	case Timeout:
		return fmt.Sprintf("Request timed out after %d seconds", v.LimitSeconds)
	case TransportError:
		return v.Message
	default:
		return ""
	}
}

// Body is a response body: either a parsed JSON document or a parse error.
type Body struct {
	// Value is the decoded document when ParseError is nil. JSON null decodes
	// to a nil Value.
	Value      any
	ParseError *ParseError
}

// ParseError keeps the raw text of a body that did not parse as JSON.
type ParseError struct {
	Reason  string `json:"error"`
	RawText string `json:"raw_response"`
}

// IsNull reports whether the body is a valid JSON null.
func (b Body) IsNull() bool {
	return b.ParseError == nil && b.Value == nil
}

// Document returns the value to validate and persist: the parsed document,
// or the parse error as an object.
func (b Body) Document() any {
	if b.ParseError != nil {
		return map[string]any{
			"error":        b.ParseError.Reason,
			"raw_response": b.ParseError.RawText,
		}
	}
	return b.Value
}

func (b Body) MarshalJSON() ([]byte, error) {
	if b.ParseError != nil {
		return json.Marshal(b.ParseError)
	}
	return json.Marshal(b.Value)
}

// ParseBody decodes data as a single JSON value. Numbers are kept as
// json.Number so they round-trip unchanged.
func ParseBody(data []byte) Body {
	v, err := DecodeJSON(data)
	if err != nil {
		return Body{ParseError: &ParseError{Reason: InvalidJSONReason, RawText: string(data)}}
	}
	return Body{Value: v}
}

// DecodeJSON decodes exactly one JSON value from data.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}
