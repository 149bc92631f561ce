// Package testutil builds benchmark directory trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ResultSchema requires a non-empty "result" array of strings.
const ResultSchema = `{
  "type": "object",
  "required": ["result"],
  "properties": {
    "result": {"type": "array", "minItems": 1, "items": {"type": "string"}}
  }
}`

// Fixture is a benchmarks root under a test temp directory.
type Fixture struct {
	t    *testing.T
	Root string
}

// NewFixture creates an empty benchmarks root.
func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{t: t, Root: filepath.Join(t.TempDir(), "benchmarks")}
}

// Spec describes one benchmark to create.
type Spec struct {
	Name     string
	Manifest string // validator.yaml contents; empty writes an empty manifest
	Prompt   string
	Schema   string            // defaults to ResultSchema
	Inputs   map[string]string // id -> input text
	Outputs  map[string]string // id -> recorded JSON output
	// NoManifest leaves the directory without validator.yaml.
	NoManifest bool
}

// Add writes a benchmark and returns its directory.
func (f *Fixture) Add(spec Spec) string {
	f.t.Helper()
	dir := filepath.Join(f.Root, spec.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		f.t.Fatalf("create benchmark dir: %v", err)
	}

	if !spec.NoManifest {
		f.Write(filepath.Join(spec.Name, "validator.yaml"), spec.Manifest)
	}
	if spec.Prompt != "" {
		f.Write(filepath.Join(spec.Name, "prompt.md"), spec.Prompt)
	}
	schema := spec.Schema
	if schema == "" {
		schema = ResultSchema
	}
	f.Write(filepath.Join(spec.Name, "schema.json"), schema)

	for id, text := range spec.Inputs {
		f.Write(filepath.Join(spec.Name, "inputs", id+".txt"), text)
	}
	for id, text := range spec.Outputs {
		f.Write(filepath.Join(spec.Name, "outputs", id+".json"), text)
	}
	return dir
}

// Write creates a file relative to the root.
func (f *Fixture) Write(rel, content string) {
	f.t.Helper()
	path := filepath.Join(f.Root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		f.t.Fatalf("create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		f.t.Fatalf("write %s: %v", rel, err)
	}
}
