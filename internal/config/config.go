// Package config loads the server configuration from BRIEFME_* environment
// variables.
//
// Example:
//
//	BRIEFME_PORT=9000 BRIEFME_DB_PATH=/var/lib/briefme/prod.db ./server
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "BRIEFME"

// Config holds everything the server needs to start.
type Config struct {
	Port         int           `envconfig:"PORT" default:"8080"`
	DBPath       string        `envconfig:"DB_PATH" default:"data/briefme.db"`
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	PublicOrigin string        `envconfig:"PUBLIC_ORIGIN"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// GeneratedSecret is set when JWTSecret was not configured and a random
	// one was made for this process. Sessions then do not survive a restart.
	GeneratedSecret bool `ignored:"true"`
}

// Load reads the environment and fills in derived defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolve() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: session TTL must be positive, got %s", c.SessionTTL)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.PublicOrigin == "" {
		c.PublicOrigin = fmt.Sprintf("http://localhost:%d", c.Port)
	}
	c.PublicOrigin = strings.TrimRight(c.PublicOrigin, "/")

	if c.JWTSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("config: generating JWT secret: %w", err)
		}
		c.JWTSecret = hex.EncodeToString(buf)
		c.GeneratedSecret = true
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	l, _ := ParseLevel(c.LogLevel)
	return l
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return l, nil
}

// Usage prints the variables Load understands.
func Usage() error {
	var cfg Config
	return envconfig.Usage(Prefix, &cfg)
}
