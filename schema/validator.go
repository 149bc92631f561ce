// Package schema validates JSON values against benchmark JSON-Schema documents.
// Only the first violation is reported.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	// PassedMessage is returned for a conforming value.
	PassedMessage = "Schema validation passed"

	resourceURL = "benchmark-schema.json"
)

// Validator is a compiled schema document.
type Validator struct {
	schema *jsonschema.Schema
}

// Compile parses and compiles a schema document. The draft is taken from
// $schema, defaulting to 2020-12.
func Compile(document []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, bytes.NewReader(document)); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	s, err := compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Check validates value and returns the verdict with a human-readable reason.
// Internal failures, including panics, are reported as invalid.
func (v *Validator) Check(value any) (valid bool, message string) {
	defer func() {
		if r := recover(); r != nil {
			valid, message = false, fmt.Sprintf("Schema validation error: panic: %v", r)
		}
	}()

	instance, err := normalize(value)
	if err != nil {
		return false, "Schema validation error: " + err.Error()
	}

	err = v.schema.Validate(instance)
	if err == nil {
		return true, PassedMessage
	}

	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return false, "Schema validation failed: " + FirstError(ve)
	}
	return false, "Schema validation error: " + err.Error()
}

// Validate compiles document and checks value against it in one step.
func Validate(value any, document []byte) (bool, string) {
	v, err := Compile(document)
	if err != nil {
		return false, "Schema validation error: " + err.Error()
	}
	return v.Check(value)
}

// FirstError renders the leaf of the first cause chain, prefixed with the
// instance location when it is not the document root.
func FirstError(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if leaf.InstanceLocation == "" {
		return leaf.Message
	}
	return leaf.InstanceLocation + ": " + leaf.Message
}

// normalize converts arbitrary Go values into the plain JSON types the
// validator understands.
func normalize(value any) (any, error) {
	switch value.(type) {
	case nil, bool, string, json.Number, float64:
		return value, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}
