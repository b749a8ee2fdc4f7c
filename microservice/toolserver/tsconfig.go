package toolserver

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/illmade-knight/go-cosmos-agent/pkg/cosmosgateway"
)

// Config holds the runtime configuration of the tool server: defaults the
// agent may omit per call (subscription, tenant, auth mode) and operational
// settings of the process itself.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// DefaultSubscription is used when a tool call does not name one.
	DefaultSubscription string `yaml:"default_subscription"`
	// TenantID pins credentials to a tenant. Empty uses the chain default.
	TenantID string `yaml:"tenant_id"`
	// DefaultAuthMode is "credential" or "key". Empty means credential.
	DefaultAuthMode string `yaml:"default_auth_mode"`

	// MaxRetries and MaxRetryDelaySeconds bound transport retries on
	// rate-limited requests. Zero values leave the transport defaults.
	MaxRetries           int32 `yaml:"max_retries"`
	MaxRetryDelaySeconds int   `yaml:"max_retry_delay_seconds"`
}

// NewConfig builds the configuration from an optional YAML file, flags, and
// environment variables, in that order of increasing precedence.
func NewConfig() (*Config, error) {
	cfg := &Config{LogLevel: "info"}

	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.StringVar(&cfg.DefaultSubscription, "subscription", "", "default subscription name or ID")
	flag.StringVar(&cfg.TenantID, "tenant", "", "tenant ID for credential auth")
	flag.StringVar(&cfg.DefaultAuthMode, "auth-mode", "", "default auth mode: credential or key")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level")
	flag.Parse()

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("toolserver: failed to read config file %q: %w", *configPath, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("toolserver: failed to parse config file %q: %w", *configPath, err)
		}
	}

	if sub := os.Getenv("AZURE_SUBSCRIPTION"); sub != "" {
		cfg.DefaultSubscription = sub
	}
	if tenant := os.Getenv("AZURE_TENANT_ID"); tenant != "" {
		cfg.TenantID = tenant
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DefaultAuthMode {
	case "", string(cosmosgateway.AuthModeCredential), string(cosmosgateway.AuthModeSharedKey):
		return nil
	default:
		return fmt.Errorf("toolserver: unknown auth mode %q", c.DefaultAuthMode)
	}
}

// RetryPolicy converts the configured bounds into a gateway retry policy, or
// nil when neither bound is set.
func (c *Config) RetryPolicy() *cosmosgateway.RetryPolicy {
	if c.MaxRetries == 0 && c.MaxRetryDelaySeconds == 0 {
		return nil
	}
	return &cosmosgateway.RetryPolicy{
		MaxRetries:    c.MaxRetries,
		MaxRetryDelay: time.Duration(c.MaxRetryDelaySeconds) * time.Second,
	}
}
