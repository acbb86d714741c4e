package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/clubboard/logging"
)

const (
	// Default listener settings
	defaultListenAddr = ":8080"

	// Default API settings
	defaultAPIBaseURL = "http://localhost:8000"
	defaultAPITimeout = 10 * time.Second

	// Default board settings
	defaultSignupMessageTTL     = 5 * time.Second
	defaultUnregisterMessageTTL = 4 * time.Second

	// Default session settings
	defaultSessionIdleTTL = 30 * time.Minute

	// Default rate limit settings
	defaultRateLimitRPS   = 5
	defaultRateLimitBurst = 10

	// Default monitoring settings
	defaultMetricsPrefix = "clubboard"
	defaultJobName       = "clubboard"
)

// Environment variables that override values from the config file.
const (
	EnvAPIURL     = "CLUBBOARD_API_URL"
	EnvListenAddr = "CLUBBOARD_LISTEN_ADDR"
	EnvLogLevel   = "CLUBBOARD_LOG_LEVEL"
)

// Config represents the complete application configuration
type Config struct {
	Listener   ListenerConfig   `yaml:"listener"`
	API        APIConfig        `yaml:"api"`
	Board      BoardConfig      `yaml:"board"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    logging.Config   `yaml:"logging"`
}

// ListenerConfig holds HTTP server listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
}

// APIConfig holds the activities API connection settings
type APIConfig struct {
	// BaseURL is the origin the activities API is served from
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BoardConfig defines board behavior settings
type BoardConfig struct {
	SignupMessageTTL     time.Duration `yaml:"signup_message_ttl"`
	UnregisterMessageTTL time.Duration `yaml:"unregister_message_ttl"`
	// KeepStaleRenders applies every completed fetch, even one that finishes
	// after a newer render.
	KeepStaleRenders bool `yaml:"keep_stale_renders"`
	// UntrackedHideTimers leaves the hide timer of a replaced message
	// running, so it may hide the newer message early.
	UntrackedHideTimers bool `yaml:"untracked_hide_timers"`
}

// SessionsConfig holds browser session settings
type SessionsConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// RateLimitConfig limits mutating requests per session
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RefreshConfig schedules periodic re-fetches of every live board
type RefreshConfig struct {
	// Schedule is a 5 field cron spec. Empty disables scheduled refreshes.
	Schedule string `yaml:"schedule"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`
	MetricsPrefix      string `yaml:"metrics_prefix"`
	JobName            string `yaml:"jobname"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API base URL must use http or https, got %q", u.Scheme)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}
	if c.Board.SignupMessageTTL <= 0 {
		return fmt.Errorf("signup message TTL must be positive")
	}
	if c.Board.UnregisterMessageTTL <= 0 {
		return fmt.Errorf("unregister message TTL must be positive")
	}
	if c.Sessions.IdleTTL <= 0 {
		return fmt.Errorf("session idle TTL must be positive")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative")
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = defaultAPITimeout
	}
	if c.Board.SignupMessageTTL == 0 {
		c.Board.SignupMessageTTL = defaultSignupMessageTTL
	}
	if c.Board.UnregisterMessageTTL == 0 {
		c.Board.UnregisterMessageTTL = defaultUnregisterMessageTTL
	}
	if c.Sessions.IdleTTL == 0 {
		c.Sessions.IdleTTL = defaultSessionIdleTTL
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = defaultRateLimitRPS
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = defaultRateLimitBurst
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	// Defaults for boolean fields are already false, which is appropriate
}

// Redacted returns a copy of the config with passwords embedded in URLs
// masked.
func (c Config) Redacted() Config {
	c.API.BaseURL = redactURL(c.API.BaseURL)
	c.Monitoring.VictoriaMetricsURL = redactURL(c.Monitoring.VictoriaMetricsURL)
	return c
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}

// ApplyEnv overrides config values with those found by lookup, which has
// the signature of os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvListenAddr); ok && v != "" {
		c.Listener.Addr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
}

// LoadEnvFile loads variables from a .env style file into the process
// environment. Variables that are already set win. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads the YAML config file at the given path, applies
// environment overrides and returns a Config struct. An empty path yields
// the defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to decode YAML config: %w", err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
