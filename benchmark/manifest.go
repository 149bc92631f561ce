package benchmark

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestFile marks a directory as a runnable benchmark.
const ManifestFile = "validator.yaml"

// Mode selects how a benchmark's test cases are validated.
type Mode string

const (
	// ModeAPI sends each input to the configured endpoint.
	ModeAPI Mode = "api"
	// ModeOffline validates pre-recorded outputs without any network call.
	ModeOffline Mode = "offline"
)

// Manifest describes a benchmark's layout. Paths are relative to the
// benchmark directory.
type Manifest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Mode        Mode   `yaml:"mode"`

	Prompt string `yaml:"prompt"`
	Schema string `yaml:"schema"`
	// Inputs is the directory holding <id>.txt files
	Inputs string `yaml:"inputs"`
	// InputPattern selects test cases inside Inputs (doublestar syntax)
	InputPattern string `yaml:"input_pattern"`
	// Outputs holds <id>.json files for offline mode
	Outputs string `yaml:"outputs"`
}

// DefaultManifest returns the layout used when the manifest is empty.
func DefaultManifest() Manifest {
	return Manifest{
		Mode:         ModeAPI,
		Prompt:       "prompt.md",
		Schema:       "schema.json",
		Inputs:       "inputs",
		InputPattern: "test_*.txt",
		Outputs:      "outputs",
	}
}

// LoadManifest reads a manifest, filling unset fields with defaults.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	m := DefaultManifest()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// Validate checks the manifest mode.
func (m Manifest) Validate() error {
	switch m.Mode {
	case ModeAPI, ModeOffline:
		return nil
	default:
		return fmt.Errorf("unknown mode %q", m.Mode)
	}
}

// applyDefaults restores defaults for keys set to empty values.
func (m *Manifest) applyDefaults() {
	def := DefaultManifest()
	if m.Mode == "" {
		m.Mode = def.Mode
	}
	if m.Prompt == "" {
		m.Prompt = def.Prompt
	}
	if m.Schema == "" {
		m.Schema = def.Schema
	}
	if m.Inputs == "" {
		m.Inputs = def.Inputs
	}
	if m.InputPattern == "" {
		m.InputPattern = def.InputPattern
	}
	if m.Outputs == "" {
		m.Outputs = def.Outputs
	}
}
