package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded into the environment before the config is parsed.
const DefaultEnvFile = ".env"

// Loader handles configuration loading: .env first, then the JSON config.
type Loader struct {
	logger  *slog.Logger
	envFile string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, envFile: DefaultEnvFile}
}

// WithEnvFile sets the dotenv file consulted before parsing. Empty disables it.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load loads configuration from path. When path is empty, config.json is
// searched for in the current directory and its parents.
func (l *Loader) Load(path string) (*Config, error) {
	l.loadEnvFile()

	if path == "" {
		path = l.findConfig()
		if path == "" {
			return nil, NewConfigurationError("configuration file not found: "+DefaultConfigFile, fs.ErrNotExist)
		}
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded config", slog.String("path", path))
	return cfg, nil
}

func (l *Loader) loadEnvFile() {
	if l.envFile == "" {
		return
	}
	// Existing environment variables win over the file.
	if err := godotenv.Load(l.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("No env file found", slog.String("path", l.envFile))
			return
		}
		l.logger.Warn("Failed to load env file", slog.String("path", l.envFile), slog.String("error", err.Error()))
		return
	}
	l.logger.Debug("Loaded env file", slog.String("path", l.envFile))
}

// findConfig searches for config.json in current and parent directories
func (l *Loader) findConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, DefaultConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
