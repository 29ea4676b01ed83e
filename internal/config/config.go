// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration from the
// environment (prefix ACTCACHE_).
package config

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full daemon configuration.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `default:":8080"`

	// Mode controls log verbosity: "test", "production", or anything else.
	Mode string `envconfig:"MODE" default:"production"`

	LogLevel string `envconfig:"LOG_LEVEL"`

	// MongoURI is the store connection string.
	MongoURI string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`

	// MongoDatabase is the database holding the act collections.
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"actcache"`

	// AdminTOTPSecret is the base32 TOTP secret guarding admin endpoints.
	// Admin routes refuse all requests when it is unset.
	AdminTOTPSecret string `envconfig:"ADMIN_TOTP_SECRET"`

	// MusicBrainzBaseURL overrides the MusicBrainz API root (tests).
	MusicBrainzBaseURL string `envconfig:"MUSICBRAINZ_BASE_URL"`

	// QueueDelay is the pause between background queue fetches.
	QueueDelay time.Duration `envconfig:"QUEUE_DELAY" default:"30s"`

	// SweepInterval is the time budget of one full sweep cycle.
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"12h"`

	// SweepRetryDelay is the pause before restarting a failed cycle.
	SweepRetryDelay time.Duration `envconfig:"SWEEP_RETRY_DELAY" default:"5s"`

	// RequestsPerMinute caps public API calls per client IP.
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"60"`
}

// Error marks a missing or malformed configuration value. Fatal at startup.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("actcache", &cfg); err != nil {
		return Config{}, &Error{Field: "environment", Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints without touching the environment.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return &Error{Field: "ACTCACHE_LISTEN", Reason: "bind address is empty"}
	}
	if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
		return &Error{Field: "ACTCACHE_MONGO_URI", Reason: "must be a mongodb:// or mongodb+srv:// URI"}
	}
	if c.MongoDatabase == "" {
		return &Error{Field: "ACTCACHE_MONGO_DATABASE", Reason: "database name is empty"}
	}
	if c.AdminTOTPSecret != "" {
		normalized := strings.ToUpper(strings.TrimRight(c.AdminTOTPSecret, "="))
		if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized); err != nil {
			return &Error{Field: "ACTCACHE_ADMIN_TOTP_SECRET", Reason: "not valid base32"}
		}
	}
	if c.MusicBrainzBaseURL != "" {
		u, err := url.Parse(c.MusicBrainzBaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &Error{Field: "ACTCACHE_MUSICBRAINZ_BASE_URL", Reason: "not a valid http(s) URL"}
		}
	}
	if c.QueueDelay < 0 {
		return &Error{Field: "ACTCACHE_QUEUE_DELAY", Reason: "must not be negative"}
	}
	if c.SweepInterval <= 0 {
		return &Error{Field: "ACTCACHE_SWEEP_INTERVAL", Reason: "must be positive"}
	}
	if c.SweepRetryDelay < 0 {
		return &Error{Field: "ACTCACHE_SWEEP_RETRY_DELAY", Reason: "must not be negative"}
	}
	if c.RequestsPerMinute <= 0 {
		return &Error{Field: "ACTCACHE_REQUESTS_PER_MINUTE", Reason: "must be positive"}
	}
	return nil
}
