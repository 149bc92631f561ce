package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Endpoint != nil {
		t.Error("expected no endpoint by default")
	}
	if cfg.BenchmarksDir != "benchmarks" {
		t.Errorf("expected default benchmarks dir benchmarks, got %s", cfg.BenchmarksDir)
	}
	if cfg.ResultsDir != "results" {
		t.Errorf("expected default results dir results, got %s", cfg.ResultsDir)
	}
	if cfg.Publish.SubjectPrefix != DefaultSubjectPrefix {
		t.Errorf("expected default subject prefix %s, got %s", DefaultSubjectPrefix, cfg.Publish.SubjectPrefix)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Endpoint = &EndpointConfig{URL: "https://x/y", Token: "t"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "missing endpoint",
			modify:  func(c *Config) { c.Endpoint = nil },
			wantErr: "no endpoint configured",
		},
		{
			name:    "missing url",
			modify:  func(c *Config) { c.Endpoint.URL = "" },
			wantErr: "missing required fields: url",
		},
		{
			name: "missing url and token",
			modify: func(c *Config) {
				c.Endpoint.URL = ""
				c.Endpoint.Token = ""
			},
			wantErr: "missing required fields: url, token",
		},
		{
			name:    "non-http url",
			modify:  func(c *Config) { c.Endpoint.URL = "ftp://x/y" },
			wantErr: "invalid URL format: ftp://x/y",
		},
		{
			name:   "timeout over limit is not a validation error",
			modify: func(c *Config) { c.Endpoint.Timeout = 400 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error %q", tt.wantErr)
			}
			if !IsConfigurationError(err) {
				t.Errorf("expected ConfigurationError, got %T", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCheckWarnsOnTimeoutOverLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = &EndpointConfig{URL: "https://x/y", Token: "t", Timeout: 400}

	warnings, err := Check(cfg)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "capping at 300s") {
		t.Errorf("expected a capping warning, got %v", warnings)
	}
	if got := cfg.Endpoint.EffectiveTimeout(); got != 300 {
		t.Errorf("expected effective timeout 300, got %d", got)
	}
	if got := cfg.Endpoint.ConfiguredTimeout(); got != 400 {
		t.Errorf("expected configured timeout 400, got %d", got)
	}
}

func TestCheckNilConfig(t *testing.T) {
	if _, err := Check(nil); !IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for nil config, got %v", err)
	}
}

func TestTimeoutDefaults(t *testing.T) {
	tests := []struct {
		configured int
		want       int
	}{
		{0, 30},
		{-5, 30},
		{10, 10},
		{300, 300},
		{301, 300},
		{400, 300},
	}
	for _, tt := range tests {
		ep := &EndpointConfig{Timeout: tt.configured}
		if got := ep.EffectiveTimeout(); got != tt.want {
			t.Errorf("EffectiveTimeout(%d) = %d, want %d", tt.configured, got, tt.want)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	content := `{
  "endpoint": {
    "url": "https://submitter.example/api",
    "token": "secret",
    "timeout": 45
  },
  "results_dir": "out"
}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Endpoint == nil {
		t.Fatal("expected endpoint to be set")
	}
	if cfg.Endpoint.URL != "https://submitter.example/api" {
		t.Errorf("expected url https://submitter.example/api, got %s", cfg.Endpoint.URL)
	}
	if cfg.Endpoint.Token != "secret" {
		t.Errorf("expected token secret, got %s", cfg.Endpoint.Token)
	}
	if cfg.Endpoint.Timeout != 45 {
		t.Errorf("expected timeout 45, got %d", cfg.Endpoint.Timeout)
	}
	if cfg.ResultsDir != "out" {
		t.Errorf("expected results dir out, got %s", cfg.ResultsDir)
	}
	if cfg.BenchmarksDir != DefaultBenchmarksDir {
		t.Errorf("expected default benchmarks dir, got %s", cfg.BenchmarksDir)
	}
}

func TestLoadFromFileMissingTimeoutUsesDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(configPath, []byte(`{"endpoint": {"url": "http://a", "token": "b"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if got := cfg.Endpoint.EffectiveTimeout(); got != DefaultTimeoutSeconds {
		t.Errorf("expected default timeout, got %d", got)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadFromFile(filepath.Join(tmpDir, "missing.json")); !IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError for missing file, got %v", err)
	}

	badPath := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(badPath, []byte(`{"endpoint": `), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFromFile(badPath)
	if !IsConfigurationError(err) {
		t.Fatalf("expected ConfigurationError for malformed JSON, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("expected invalid JSON message, got %q", err.Error())
	}
}

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("BENCHGATE_TEST_TOKEN", "from-env")
	t.Setenv("BENCHGATE_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{`${BENCHGATE_TEST_TOKEN}`, "from-env"},
		{`$BENCHGATE_TEST_TOKEN`, "from-env"},
		{`${BENCHGATE_TEST_TOKEN:-fallback}`, "from-env"},
		{`${BENCHGATE_TEST_UNSET:-fallback}`, "fallback"},
		{`${BENCHGATE_TEST_EMPTY:-fallback}`, "fallback"},
		{`${BENCHGATE_TEST_UNSET}`, ""},
		{`no references`, "no references"},
	}
	for _, tt := range tests {
		if got := ExpandEnvWithDefaults(tt.input); got != tt.want {
			t.Errorf("ExpandEnvWithDefaults(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoaderUsesEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(envPath, []byte("BENCHGATE_LOADER_TOKEN=dotenv-token\n"), 0644); err != nil {
		t.Fatal(err)
	}
	content := `{"endpoint": {"url": "http://a", "token": "${BENCHGATE_LOADER_TOKEN}"}}`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BENCHGATE_LOADER_TOKEN") })

	cfg, err := NewLoader(nil).WithEnvFile(envPath).Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Endpoint.Token != "dotenv-token" {
		t.Errorf("expected token from env file, got %q", cfg.Endpoint.Token)
	}
}

func TestLoaderMissingEnvFileIsNotFatal(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"endpoint": {"url": "http://a", "token": "b"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewLoader(nil).WithEnvFile(filepath.Join(tmpDir, "missing.env")).Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}
