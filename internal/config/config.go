package config

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/model"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultRenewWithin = time.Hour
)

// Config is the full configuration for one relay run.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	// TokenFile is the path of the persisted bearer token (JSON).
	TokenFile string `yaml:"token_file"`

	// LockFile is the advisory lock taken for the duration of a run so
	// overlapping invocations cannot race on the token file.
	// Defaults to TokenFile + ".lock".
	LockFile string `yaml:"lock_file"`

	// Source is the authenticated metrics endpoint to scrape.
	Source SourceConfig `yaml:"source"`

	// TokenService holds the token validation and renewal endpoints.
	TokenService TokenServiceConfig `yaml:"token_service"`

	// Sink is the bulk-import endpoint the enriched corpus is pushed to.
	Sink SinkConfig `yaml:"sink"`

	// Labels is the fixed identity label set injected into every sample.
	// Injected values always win over colliding scraped labels.
	Labels map[string]string `yaml:"labels"`

	// Timeout bounds every individual HTTP call (validate, renew,
	// scrape, push). A timeout is treated the same as a network failure.
	Timeout time.Duration `yaml:"timeout"`

	// RenewWithin triggers token renewal when the remaining lifetime of
	// the stored token drops below this duration.
	RenewWithin time.Duration `yaml:"renew_within"`

	// Debug enables per-stage timing logs and retention of the raw and
	// enriched corpus under DebugDir.
	Debug bool `yaml:"debug"`

	// DebugDir is where debug artifacts are written. Required when
	// Debug is set.
	DebugDir string `yaml:"debug_dir"`
}

// SourceConfig describes the scraped metrics endpoint.
type SourceConfig struct {
	// URL is the full URL of the exposition endpoint.
	URL string `yaml:"url"`

	// InsecureSkipVerify disables TLS certificate verification for the
	// scrape. The source presents an internally-issued certificate, so
	// this is a deliberate trust decision for an internal-only
	// endpoint, not an oversight.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// TokenServiceConfig holds the two token lifecycle endpoints.
type TokenServiceConfig struct {
	// ValidateURL is queried with the stored token id and must return
	// an object with a parseable "expiration" field.
	ValidateURL string `yaml:"validate_url"`

	// RenewURL accepts the current token string and returns a new
	// token_string and id.
	RenewURL string `yaml:"renew_url"`
}

// SinkConfig describes the bulk-import endpoint.
type SinkConfig struct {
	URL string `yaml:"url"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if cfg.LockFile == "" {
		cfg.LockFile = cfg.TokenFile + ".lock"
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		RenewWithin: DefaultRenewWithin,
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.TokenFile == "" {
		return fmt.Errorf("token_file is required")
	}
	if cfg.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if cfg.TokenService.ValidateURL == "" {
		return fmt.Errorf("token_service.validate_url is required")
	}
	if cfg.TokenService.RenewURL == "" {
		return fmt.Errorf("token_service.renew_url is required")
	}
	if cfg.Sink.URL == "" {
		return fmt.Errorf("sink.url is required")
	}
	if len(cfg.Labels) == 0 {
		return fmt.Errorf("labels: at least one injected label is required")
	}
	for k := range cfg.Labels {
		if !model.LabelName(k).IsValid() {
			return fmt.Errorf("labels: %q is not a valid label name", k)
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.RenewWithin <= 0 {
		return fmt.Errorf("renew_within must be positive")
	}
	if cfg.Debug && cfg.DebugDir == "" {
		return fmt.Errorf("debug_dir is required when debug is enabled")
	}
	return nil
}
