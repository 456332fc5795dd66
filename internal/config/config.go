// ABOUTME: Configuration loading and parsing for the dispatch core.
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete dispatch core configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds transcript database configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DispatchConfig holds selection and fallback policy.
type DispatchConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	HybridFallback      bool    `yaml:"hybrid_fallback"`
	DefaultAgentType    string  `yaml:"default_agent_type"`
	KeywordPack         string  `yaml:"keyword_pack"`
}

// CacheConfig holds agent cache sizing and sweep timing.
type CacheConfig struct {
	Capacity      int           `yaml:"capacity"`
	IdleTimeout   time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	IdleTimeoutRaw   string `yaml:"idle_timeout"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// SessionConfig holds per-turn timing configuration.
type SessionConfig struct {
	RequestTimeout time.Duration `yaml:"-"`

	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the file omits a value.
const (
	defaultCapacity            = 4
	defaultIdleTimeout         = 30 * time.Minute
	defaultSweepInterval       = 10 * time.Minute
	defaultRequestTimeout      = 2 * time.Minute
	defaultConfidenceThreshold = 0.3
)

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in zero values that have sensible production defaults.
func (c *Config) applyDefaults() {
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = defaultCapacity
	}
	if c.Cache.IdleTimeout == 0 {
		c.Cache.IdleTimeout = defaultIdleTimeout
	}
	if c.Cache.SweepInterval == 0 {
		c.Cache.SweepInterval = defaultSweepInterval
	}
	if c.Session.RequestTimeout == 0 {
		c.Session.RequestTimeout = defaultRequestTimeout
	}
	if c.Dispatch.ConfidenceThreshold == 0 {
		c.Dispatch.ConfidenceThreshold = defaultConfidenceThreshold
	}
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Dispatch.DefaultAgentType == "" {
		return fmt.Errorf("dispatch.default_agent_type is required")
	}
	if c.Dispatch.KeywordPack == "" {
		return fmt.Errorf("dispatch.keyword_pack is required")
	}
	if c.Dispatch.ConfidenceThreshold < 0 || c.Dispatch.ConfidenceThreshold > 1 {
		return fmt.Errorf("dispatch.confidence_threshold must be within [0,1]")
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be at least 1")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Cache.IdleTimeoutRaw != "" {
		cfg.Cache.IdleTimeout, err = time.ParseDuration(cfg.Cache.IdleTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing idle_timeout %q: %w", cfg.Cache.IdleTimeoutRaw, err)
		}
	}

	if cfg.Cache.SweepIntervalRaw != "" {
		cfg.Cache.SweepInterval, err = time.ParseDuration(cfg.Cache.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing sweep_interval %q: %w", cfg.Cache.SweepIntervalRaw, err)
		}
	}

	if cfg.Session.RequestTimeoutRaw != "" {
		cfg.Session.RequestTimeout, err = time.ParseDuration(cfg.Session.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Session.RequestTimeoutRaw, err)
		}
	}

	return nil
}
