package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/sparklabs/spark/internal/logging"
)

// Duration wraps time.Duration with text (un)marshaling for YAML/env values.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration cannot be negative: %s", text)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration().String())
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the root spark configuration.
type Config struct {
	Connection ConnectionConfig `koanf:"connection"`
	Logging    logging.Config   `koanf:"logging"`
	Sound      SoundConfig      `koanf:"sound"`
	VCard      VCardConfig      `koanf:"vcard"`
	Search     SearchConfig     `koanf:"search"`
}

// ConnectionConfig controls the broker connection held by the session.
type ConnectionConfig struct {
	URL           string   `koanf:"url"`
	Name          string   `koanf:"name"`
	MaxReconnects int      `koanf:"max_reconnects"`
	ReconnectWait Duration `koanf:"reconnect_wait"`
}

// SoundConfig controls event sound playback.
type SoundConfig struct {
	Enabled bool              `koanf:"enabled"`
	Clips   map[string]string `koanf:"clips"`
}

// VCardConfig controls the profile cache.
type VCardConfig struct {
	TTL            Duration `koanf:"ttl"`
	RequestTimeout Duration `koanf:"request_timeout"`
}

// SearchConfig controls the transcript search index.
type SearchConfig struct {
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Connection.URL == "" {
		return fmt.Errorf("connection.url is required")
	}
	if _, err := url.Parse(c.Connection.URL); err != nil {
		return fmt.Errorf("connection.url is invalid: %w", err)
	}
	if c.Connection.MaxReconnects < 0 {
		return fmt.Errorf("connection.max_reconnects must be >= 0")
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Search.VectorSize <= 0 {
		return fmt.Errorf("search.vector_size must be positive")
	}
	return nil
}
