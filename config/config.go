// Package config provides configuration loading and validation for benchgate.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// DefaultTimeoutSeconds is used when the endpoint omits a timeout.
	DefaultTimeoutSeconds = 30
	// MaxTimeoutSeconds caps the request timeout regardless of configuration.
	MaxTimeoutSeconds = 300

	// DefaultConfigFile is the config path used when none is given.
	DefaultConfigFile = "config.json"
	// DefaultBenchmarksDir is where benchmark definitions live.
	DefaultBenchmarksDir = "benchmarks"
	// DefaultResultsDir is where per-test artifacts are written.
	DefaultResultsDir = "results"
	// DefaultSubjectPrefix is the NATS subject prefix for published verdicts.
	DefaultSubjectPrefix = "benchgate.verdicts"
)

// Config represents the complete benchgate configuration
type Config struct {
	Endpoint *EndpointConfig `json:"endpoint"`

	// BenchmarksDir overrides the benchmark root (default: benchmarks)
	BenchmarksDir string `json:"benchmarks_dir,omitempty"`
	// ResultsDir overrides the results root (default: results)
	ResultsDir string `json:"results_dir,omitempty"`

	Publish PublishConfig `json:"publish"`
}

// EndpointConfig describes the submitter endpoint under test.
type EndpointConfig struct {
	URL   string `json:"url"`
	Token string `json:"token"`
	// Timeout is the configured request timeout in seconds. Zero means default.
	Timeout int `json:"timeout,omitempty"`
}

// PublishConfig configures optional verdict publication.
type PublishConfig struct {
	// NATSURL enables publishing when non-empty
	NATSURL       string `json:"nats_url,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults and no endpoint.
func DefaultConfig() *Config {
	return &Config{
		BenchmarksDir: DefaultBenchmarksDir,
		ResultsDir:    DefaultResultsDir,
		Publish: PublishConfig{
			SubjectPrefix: DefaultSubjectPrefix,
		},
	}
}

// ConfiguredTimeout returns the timeout as configured, applying the default
// when unset. It is not capped.
func (e *EndpointConfig) ConfiguredTimeout() int {
	if e.Timeout <= 0 {
		return DefaultTimeoutSeconds
	}
	return e.Timeout
}

// EffectiveTimeout returns the timeout actually used for requests.
func (e *EndpointConfig) EffectiveTimeout() int {
	return ClampTimeout(e.ConfiguredTimeout())
}

// ClampTimeout bounds seconds to MaxTimeoutSeconds.
func ClampTimeout(seconds int) int {
	if seconds > MaxTimeoutSeconds {
		return MaxTimeoutSeconds
	}
	return seconds
}

// Validate checks that the configuration can be used to contact an endpoint.
// All failures are *ConfigurationError.
func (c *Config) Validate() error {
	if c.Endpoint == nil {
		return NewConfigurationError("no endpoint configured", nil)
	}

	var missing []string
	if c.Endpoint.URL == "" {
		missing = append(missing, "url")
	}
	if c.Endpoint.Token == "" {
		missing = append(missing, "token")
	}
	if len(missing) > 0 {
		return NewConfigurationError("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	if !strings.HasPrefix(c.Endpoint.URL, "http") {
		return NewConfigurationError("invalid URL format: "+c.Endpoint.URL, nil)
	}
	return nil
}

// Check runs the config-check pass: it validates the configuration and
// collects non-fatal warnings. An over-limit timeout only warns here; it is
// clamped at request time.
func Check(c *Config) ([]string, error) {
	if c == nil {
		return nil, NewConfigurationError("no configuration loaded", nil)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var warnings []string
	if t := c.Endpoint.ConfiguredTimeout(); t > MaxTimeoutSeconds {
		warnings = append(warnings,
			fmt.Sprintf("Timeout %ds exceeds maximum %ds, capping at %ds", t, MaxTimeoutSeconds, MaxTimeoutSeconds))
	}
	return warnings, nil
}

// LoadFromFile loads configuration from a JSON file. Environment references
// (${VAR}, ${VAR:-default}) are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewConfigurationError("configuration file not found: "+path, err)
		}
		return nil, NewConfigurationError("read config file", err)
	}

	return Parse([]byte(ExpandEnvWithDefaults(string(data))))
}

// Parse decodes a JSON configuration document on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(cfg); err != nil {
		return nil, NewConfigurationError("invalid JSON in config file", err)
	}
	if cfg.BenchmarksDir == "" {
		cfg.BenchmarksDir = DefaultBenchmarksDir
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}
	if cfg.Publish.SubjectPrefix == "" {
		cfg.Publish.SubjectPrefix = DefaultSubjectPrefix
	}
	return cfg, nil
}

// ExpandEnvWithDefaults expands $VAR, ${VAR} and ${VAR:-default} references.
func ExpandEnvWithDefaults(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
