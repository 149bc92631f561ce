package benchmark

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Benchmark is a named suite sharing one prompt, schema and layout.
type Benchmark struct {
	Name     string
	Dir      string
	Manifest Manifest
}

// InputNotFoundError reports a test case whose input file is absent.
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return "Input file not found: " + e.Path
}

// OutputNotFoundError reports an offline test case without a recorded output.
type OutputNotFoundError struct {
	Path string
}

func (e *OutputNotFoundError) Error() string {
	return "Output file not found: " + e.Path
}

func (b *Benchmark) path(rel string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(rel))
}

// InputPath returns the input file for a test case.
func (b *Benchmark) InputPath(testCase string) string {
	return filepath.Join(b.path(b.Manifest.Inputs), filepath.FromSlash(testCase)+inputExt)
}

// OutputPath returns the recorded output file for a test case.
func (b *Benchmark) OutputPath(testCase string) string {
	return filepath.Join(b.path(b.Manifest.Outputs), filepath.FromSlash(testCase)+".json")
}

// SchemaPath returns the schema document path.
func (b *Benchmark) SchemaPath() string {
	return b.path(b.Manifest.Schema)
}

// LoadPrompt returns the fixed prompt text, trimmed.
func (b *Benchmark) LoadPrompt() (string, error) {
	data, err := os.ReadFile(b.path(b.Manifest.Prompt))
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadInput returns a test case's input text, trimmed. A missing file is an
// *InputNotFoundError; nothing is substituted.
func (b *Benchmark) LoadInput(testCase string) (string, error) {
	path := b.InputPath(testCase)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &InputNotFoundError{Path: path}
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadSchema returns the raw schema document.
func (b *Benchmark) LoadSchema() ([]byte, error) {
	data, err := os.ReadFile(b.SchemaPath())
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return data, nil
}

// LoadOutput returns a recorded output document. A missing file is an
// *OutputNotFoundError.
func (b *Benchmark) LoadOutput(testCase string) ([]byte, error) {
	path := b.OutputPath(testCase)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &OutputNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("read output: %w", err)
	}
	return data, nil
}
