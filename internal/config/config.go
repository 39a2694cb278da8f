// Package config provides hierarchical configuration loading for patchpal.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all runtime configuration for the broker and the submitter.
type Config struct {
	Server  Server  `yaml:"server"`
	Client  Client  `yaml:"client"`
	Broker  Broker  `yaml:"broker"`
	Review  Review  `yaml:"review"`
	Logging Logging `yaml:"logging"`
	Git     Git     `yaml:"git"`
	Metrics Metrics `yaml:"metrics"`
	NATS    NATS    `yaml:"nats"`
	GitHub  GitHub  `yaml:"github"`
}

// Server holds the reviewer's listening endpoint.
type Server struct {
	Addr string `yaml:"addr"`
}

// Client holds submitter connection settings.
type Client struct {
	URL          string        `yaml:"url"`
	DialAttempts int           `yaml:"dial_attempts"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
}

// Broker holds queue limits.
type Broker struct {
	MaxPending      int   `yaml:"max_pending"`       // requests buffered behind the active one
	MaxMessageBytes int64 `yaml:"max_message_bytes"` // largest submission frame accepted
}

// Review holds review loop settings.
type Review struct {
	TickInterval    time.Duration `yaml:"tick_interval"`
	DecisionTimeout time.Duration `yaml:"decision_timeout"` // 0 waits forever
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
	File    string `yaml:"file"` // server log destination; the terminal belongs to the display
}

// Git holds git CLI concurrency configuration.
type Git struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Metrics holds metric export configuration.
type Metrics struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// NATS holds the optional decision audit sink. Empty URL disables it.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// GitHub holds API access for pull request diffs. An empty token makes
// unauthenticated requests; an empty APIURL means api.github.com.
type GitHub struct {
	Token  string `yaml:"token"`
	APIURL string `yaml:"api_url"`
}

// Defaults returns a Config with sensible default values for local use.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr: "127.0.0.1:8443",
		},
		Client: Client{
			URL:          "ws://127.0.0.1:8443/ws",
			DialAttempts: 3,
			DialTimeout:  5 * time.Second,
		},
		Broker: Broker{
			MaxPending:      64,
			MaxMessageBytes: 8 << 20,
		},
		Review: Review{
			TickInterval:    100 * time.Millisecond,
			DecisionTimeout: time.Hour,
		},
		Logging: Logging{
			Level:   "info",
			Service: "patchpal",
			File:    filepath.Join(os.TempDir(), "patchpal.log"),
		},
		Git: Git{
			MaxConcurrent: 4,
		},
		Metrics: Metrics{
			Interval: 30 * time.Second,
		},
		NATS: NATS{
			Subject: "patchpal.decisions",
		},
	}
}
