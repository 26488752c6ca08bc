// Package config loads and validates gatewarden process configuration.
// YAML files support ${VAR_NAME} environment expansion and Go duration
// strings for all timing fields.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rvaughn/gatewarden/internal/util"
)

// Config is the complete gatewarden configuration.
type Config struct {
	// Production enables the hardened profile: the session secret becomes
	// mandatory and session cookies are marked Secure. This is an explicit
	// flag, never inferred from the environment.
	Production bool `yaml:"production"`

	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Vault     VaultConfig     `yaml:"vault"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds listener configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	DataDir        string   `yaml:"data_dir"`
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// AuthConfig holds the credentials the gateway authenticates against. It is
// read once at startup and treated as immutable afterwards.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	APIKey        string `yaml:"api_key"`
	BasicUser     string `yaml:"basic_user"`
	BasicPassword string `yaml:"basic_password"`
	AdminSecret   string `yaml:"admin_secret"`
	SessionSecret string `yaml:"session_secret"`

	SessionTimeout    time.Duration `yaml:"-"`
	SessionTimeoutRaw string        `yaml:"session_timeout"`
}

// BucketConfig overrides the window and maximum count for one named
// rate-limit bucket.
type BucketConfig struct {
	Max       int           `yaml:"max"`
	Window    time.Duration `yaml:"-"`
	WindowRaw string        `yaml:"window"`
}

// RateLimitConfig holds the global defaults plus per-bucket overrides.
type RateLimitConfig struct {
	Enabled    bool                    `yaml:"enabled"`
	Max        int                     `yaml:"max"`
	Window     time.Duration           `yaml:"-"`
	WindowRaw  string                  `yaml:"window"`
	Buckets    map[string]BucketConfig `yaml:"buckets"`
}

// VaultConfig tunes the derived-key vault.
type VaultConfig struct {
	// MaxRehydrations bounds how many times a derived key may be recomputed
	// from the remembered password within one session.
	MaxRehydrations int `yaml:"max_rehydrations"`
	// KDFProfile selects the Argon2id profile: interactive, moderate, sensitive.
	KDFProfile string `yaml:"kdf_profile"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with development-safe defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8443",
			DataDir: "./data",
		},
		Auth: AuthConfig{
			Enabled:        true,
			SessionTimeout: time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Max:     100,
			Window:  time.Minute,
		},
		Vault: VaultConfig{
			MaxRehydrations: 3,
			KDFProfile:      util.KDFProfileModerate,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a configuration file, expands ${VAR_NAME} environment
// references, parses duration strings, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

var envVarRE = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarRE.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarRE.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	if cfg.Auth.SessionTimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.Auth.SessionTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing auth.session_timeout %q: %w", cfg.Auth.SessionTimeoutRaw, err)
		}
		cfg.Auth.SessionTimeout = d
	}
	if cfg.RateLimit.WindowRaw != "" {
		d, err := time.ParseDuration(cfg.RateLimit.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit.window %q: %w", cfg.RateLimit.WindowRaw, err)
		}
		cfg.RateLimit.Window = d
	}
	for name, b := range cfg.RateLimit.Buckets {
		if b.WindowRaw == "" {
			continue
		}
		d, err := time.ParseDuration(b.WindowRaw)
		if err != nil {
			return fmt.Errorf("parsing rate_limit.buckets.%s.window %q: %w", name, b.WindowRaw, err)
		}
		b.Window = d
		cfg.RateLimit.Buckets[name] = b
	}
	return nil
}

// Validate checks the configuration for startup-fatal problems. A missing
// session secret is fatal only under the production flag; elsewhere sessions
// degrade to disabled.
func (c *Config) Validate() error {
	if c.Production && c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is required when production is enabled")
	}
	if c.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("auth.session_timeout must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Max < 1 {
			return fmt.Errorf("rate_limit.max must be at least 1")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive")
		}
		for name, b := range c.RateLimit.Buckets {
			if b.Max < 1 {
				return fmt.Errorf("rate_limit.buckets.%s.max must be at least 1", name)
			}
		}
	}
	if c.Vault.MaxRehydrations < 0 {
		return fmt.Errorf("vault.max_rehydrations must not be negative")
	}
	if _, err := util.Argon2idProfile(c.Vault.KDFProfile); err != nil {
		return fmt.Errorf("vault.kdf_profile: %w", err)
	}
	return nil
}
