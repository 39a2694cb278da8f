package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "patchpal.yaml"

// CLIFlags holds values set on the command line. Nil means "not given".
type CLIFlags struct {
	ConfigPath *string
	Addr       *string
	URL        *string
	LogLevel   *string
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// LoadWithCLI applies defaults < YAML < ENV < CLI and returns the config
// together with the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, path, fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, path, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "PATCHPAL_ADDR")
	setString(&cfg.Client.URL, "PATCHPAL_URL")
	setInt(&cfg.Client.DialAttempts, "PATCHPAL_DIAL_ATTEMPTS")
	setDuration(&cfg.Client.DialTimeout, "PATCHPAL_DIAL_TIMEOUT")
	setInt(&cfg.Broker.MaxPending, "PATCHPAL_MAX_PENDING")
	setInt64(&cfg.Broker.MaxMessageBytes, "PATCHPAL_MAX_MESSAGE_BYTES")
	setDuration(&cfg.Review.TickInterval, "PATCHPAL_TICK_INTERVAL")
	setDuration(&cfg.Review.DecisionTimeout, "PATCHPAL_DECISION_TIMEOUT")
	setString(&cfg.Logging.Level, "PATCHPAL_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PATCHPAL_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PATCHPAL_LOG_ASYNC")
	setString(&cfg.Logging.File, "PATCHPAL_LOG_FILE")
	setInt(&cfg.Git.MaxConcurrent, "PATCHPAL_GIT_MAX_CONCURRENT")
	setBool(&cfg.Metrics.Enabled, "PATCHPAL_METRICS")
	setDuration(&cfg.Metrics.Interval, "PATCHPAL_METRICS_INTERVAL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Subject, "PATCHPAL_NATS_SUBJECT")
	setString(&cfg.GitHub.Token, "GITHUB_TOKEN")
	setString(&cfg.GitHub.Token, "PATCHPAL_GITHUB_TOKEN")
	setString(&cfg.GitHub.APIURL, "PATCHPAL_GITHUB_API_URL")
}

// applyCLI overlays explicitly given command-line values.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Addr != nil {
		cfg.Server.Addr = *flags.Addr
	}
	if flags.URL != nil {
		cfg.Client.URL = *flags.URL
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Client.URL == "" {
		return errors.New("client.url is required")
	}
	u, err := url.Parse(cfg.Client.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url: scheme must be ws or wss, got %q", u.Scheme)
	}
	if cfg.Client.DialAttempts < 1 {
		return errors.New("client.dial_attempts must be >= 1")
	}
	if cfg.Client.DialTimeout <= 0 {
		return errors.New("client.dial_timeout must be > 0")
	}
	if cfg.Broker.MaxPending < 1 {
		return errors.New("broker.max_pending must be >= 1")
	}
	if cfg.Broker.MaxMessageBytes < 1 {
		return errors.New("broker.max_message_bytes must be >= 1")
	}
	if cfg.Review.TickInterval <= 0 {
		return errors.New("review.tick_interval must be > 0")
	}
	if cfg.Review.DecisionTimeout < 0 {
		return errors.New("review.decision_timeout must be >= 0")
	}
	if cfg.Git.MaxConcurrent < 1 {
		return errors.New("git.max_concurrent must be >= 1")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Interval <= 0 {
		return errors.New("metrics.interval must be > 0 when metrics are enabled")
	}
	if cfg.NATS.URL != "" && cfg.NATS.Subject == "" {
		return errors.New("nats.subject is required when nats.url is set")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
