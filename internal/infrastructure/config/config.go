// Package config provides configuration loading for the gitter application.
// Settings come from an optional YAML file overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	// EnvConfigFile is the path to the YAML configuration file.
	EnvConfigFile = "GITTER_CONFIG"

	// EnvGitPath is the git executable to run.
	EnvGitPath = "GITTER_GIT_PATH"

	// EnvEncoding is the encoding git output is decoded from.
	EnvEncoding = "GITTER_ENCODING"

	// EnvCommandTimeout bounds every git invocation (Go duration, e.g. "30s").
	EnvCommandTimeout = "GITTER_COMMAND_TIMEOUT"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"
)

// Default values.
const (
	DefaultGitPath    = "git"
	DefaultEncoding   = "utf-8"
	DefaultLogLevel   = "info"
	DefaultLogAppName = "gitter"
)

// Configuration errors.
var (
	// ErrConfigFileNotFound indicates the configured YAML file does not exist.
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrConfigFileInvalid indicates the YAML file could not be parsed.
	ErrConfigFileInvalid = errors.New("configuration file is not valid YAML")

	// ErrInvalidTimeout indicates a malformed or negative command timeout.
	ErrInvalidTimeout = errors.New("invalid command timeout")
)

// Config holds all application configuration.
type Config struct {
	// GitPath is the git executable.
	GitPath string `yaml:"git_path"`

	// Encoding is the WHATWG name of the encoding git output is decoded from.
	Encoding string `yaml:"encoding"`

	// CommandTimeout bounds each git invocation; zero means no limit.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// Environment holds extra variables passed to every git process.
	Environment map[string]string `yaml:"environment"`

	// LogLevel is the logging level (debug, info, error).
	LogLevel string `yaml:"log_level"`

	// LogAppName is the application name for log context.
	LogAppName string `yaml:"log_app_name"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GitPath:    DefaultGitPath,
		Encoding:   DefaultEncoding,
		LogLevel:   DefaultLogLevel,
		LogAppName: DefaultLogAppName,
	}
}

// Load loads the configuration from the file named by GITTER_CONFIG, if
// any, then applies environment variable overrides.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile loads the configuration from path (skipped when empty), then
// applies environment variable overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if cfg.CommandTimeout < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, cfg.CommandTimeout)
	}
	return cfg, nil
}

// mergeFile overlays the non-empty settings of a YAML file.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigFileInvalid, err)
	}

	setIfNotEmpty(&c.GitPath, file.GitPath)
	setIfNotEmpty(&c.Encoding, file.Encoding)
	setIfNotEmpty(&c.LogLevel, file.LogLevel)
	setIfNotEmpty(&c.LogAppName, file.LogAppName)
	if file.CommandTimeout != 0 {
		c.CommandTimeout = file.CommandTimeout
	}
	if len(file.Environment) > 0 {
		c.Environment = file.Environment
	}
	return nil
}

// mergeEnv overlays settings from environment variables.
func (c *Config) mergeEnv() error {
	setIfNotEmpty(&c.GitPath, os.Getenv(EnvGitPath))
	setIfNotEmpty(&c.Encoding, os.Getenv(EnvEncoding))
	setIfNotEmpty(&c.LogLevel, os.Getenv(EnvLogLevel))
	setIfNotEmpty(&c.LogAppName, os.Getenv(EnvLogAppName))

	if raw := strings.TrimSpace(os.Getenv(EnvCommandTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidTimeout, EnvCommandTimeout, raw, err)
		}
		c.CommandTimeout = d
	}
	return nil
}

func setIfNotEmpty(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
