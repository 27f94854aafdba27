// Package config loads and validates the process-wide configuration,
// following the teacher's SetDefaults()/Validate() convention for config
// sections and gopkg.in/yaml.v3 for the on-disk format.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object. Fields map directly onto the
// recognized options table in the specification's external interfaces
// section, plus the crawl roots, exclusion patterns, and storage paths
// every deployment needs but which the spec leaves to the embedding host.
type Config struct {
	Roots           []string `yaml:"roots"`
	ExcludePatterns []string `yaml:"excludePatterns"`
	DBPath          string   `yaml:"dbPath"`
	LogDir          string   `yaml:"logDir"`

	EnableActivityMonitor    bool    `yaml:"enableActivityMonitor"`
	IdleThresholdSeconds     float64 `yaml:"idleThreshold"`
	AutoIndexIntervalMinutes int     `yaml:"autoIndexIntervalMinutes"`
	RetryIntervalSeconds     int     `yaml:"retryIntervalSeconds"`
	MaxFileSizeBytes         int64   `yaml:"maxFileSizeBytes"`
	ExtractionTimeoutSeconds int     `yaml:"extractionTimeoutSeconds"`
	HWPTimeoutSeconds        int     `yaml:"hwpTimeoutSeconds"`
	TombstoneGCDays          int     `yaml:"tombstoneGcDays"`
}

// SetDefaults fills unset fields with the specification's documented
// defaults. Safe to call on a zero-value Config before Load overlays it
// with YAML, matching the teacher's per-section SetDefaults pattern.
func (c *Config) SetDefaults() {
	if c.DBPath == "" {
		c.DBPath = "index.db"
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.IdleThresholdSeconds == 0 {
		c.IdleThresholdSeconds = 2.0
	}
	if c.AutoIndexIntervalMinutes == 0 {
		c.AutoIndexIntervalMinutes = 30
	}
	if c.RetryIntervalSeconds == 0 {
		c.RetryIntervalSeconds = 300
	}
	if c.MaxFileSizeBytes == 0 {
		c.MaxFileSizeBytes = 100 * 1024 * 1024
	}
	if c.ExtractionTimeoutSeconds == 0 {
		c.ExtractionTimeoutSeconds = 60
	}
	if c.HWPTimeoutSeconds == 0 {
		c.HWPTimeoutSeconds = 30
	}
	if c.TombstoneGCDays == 0 {
		c.TombstoneGCDays = 30
	}
	// EnableActivityMonitor defaults true; only an explicit "false" in YAML
	// turns it off, so the zero-value bool path is handled by Load via a
	// pointer-free convention: callers that need "unset" must set it in YAML.
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.Roots) == 0 {
		return fmt.Errorf("config: at least one root is required")
	}
	for _, r := range c.Roots {
		if r == "" {
			return fmt.Errorf("config: empty root path")
		}
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: dbPath is required")
	}
	if c.IdleThresholdSeconds <= 0 {
		return fmt.Errorf("config: idleThreshold must be positive")
	}
	if c.RetryIntervalSeconds <= 0 {
		return fmt.Errorf("config: retryIntervalSeconds must be positive")
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("config: maxFileSizeBytes must be positive")
	}
	if c.ExtractionTimeoutSeconds <= 0 {
		return fmt.Errorf("config: extractionTimeoutSeconds must be positive")
	}
	if c.HWPTimeoutSeconds <= 0 {
		return fmt.Errorf("config: hwpTimeoutSeconds must be positive")
	}
	if c.TombstoneGCDays <= 0 {
		return fmt.Errorf("config: tombstoneGcDays must be positive")
	}
	return nil
}

// IdleThreshold returns the idle threshold as a time.Duration.
func (c *Config) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdSeconds * float64(time.Second))
}

// ExtractionTimeout returns the default extractor deadline.
func (c *Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.ExtractionTimeoutSeconds) * time.Second
}

// HWPTimeout returns the HWP-specific extractor deadline.
func (c *Config) HWPTimeout() time.Duration {
	return time.Duration(c.HWPTimeoutSeconds) * time.Second
}

// RetryInterval returns the retry worker's drain period.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSeconds) * time.Second
}

// TombstoneGCAge returns the tombstone retention window.
func (c *Config) TombstoneGCAge() time.Duration {
	return time.Duration(c.TombstoneGCDays) * 24 * time.Hour
}

// Default returns a Config with every documented default applied and
// EnableActivityMonitor set true, for callers (tests, the CLI's bare
// "scan" invocation) that have no YAML file to load.
func Default() *Config {
	c := &Config{EnableActivityMonitor: true}
	c.SetDefaults()
	return c
}

// Load reads a YAML configuration file, expands ${VAR}-style environment
// references in string values, overlays it on the documented defaults and
// validates the result — mirroring the teacher's env-expanding YAML loader.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	expanded := ExpandEnvVarsInData(generic)

	reencoded, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("config: re-encode %s: %w", path, err)
	}

	cfg := &Config{EnableActivityMonitor: true}
	if err := yaml.Unmarshal(reencoded, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
