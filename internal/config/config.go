// Package config loads hashview settings.
//
// Layers apply in order: built-in defaults, an optional YAML file,
// HASHVIEW_* environment variables, then normalisation. The result is
// validated against an embedded CUE schema.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hashview/internal/whitelist"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// DefaultWhitelist is the set of session fields loaded by default. It
// covers the counter attributes but leaves sessionAttr:uuid out.
var DefaultWhitelist = []string{
	"maxInactiveInterval",
	"creationTime",
	"lastAccessedTime",
	"sessionAttr:updatedDate",
	"sessionAttr:increment",
}

// Config holds every hashview setting.
type Config struct {
	Backend             string        `yaml:"backend" json:"backend" env:"HASHVIEW_BACKEND"`
	Path                string        `yaml:"path" json:"path" env:"HASHVIEW_DB"`
	Namespace           string        `yaml:"namespace" json:"namespace" env:"HASHVIEW_NAMESPACE"`
	Whitelist           []string      `yaml:"whitelist" json:"whitelist" env:"HASHVIEW_WHITELIST" envSeparator:","`
	MaxInactiveInterval time.Duration `yaml:"maxInactiveInterval" json:"maxInactiveInterval" env:"HASHVIEW_MAX_INACTIVE_INTERVAL"`
	LogLevel            string        `yaml:"logLevel" json:"logLevel" env:"HASHVIEW_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:             BackendSQLite,
		Path:                "hashview.db",
		Namespace:           "hashview",
		Whitelist:           append([]string(nil), DefaultWhitelist...),
		MaxInactiveInterval: 30 * time.Minute,
		LogLevel:            "info",
	}
}

// Load builds the configuration. An empty path skips the file layer; a
// named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Normalize()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Normalize trims names and converts them to Unicode NFC so that visually
// identical field names compare equal.
func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.Namespace = norm.NFC.String(strings.TrimSpace(c.Namespace))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	names := make([]string, 0, len(c.Whitelist))
	for _, name := range c.Whitelist {
		names = append(names, norm.NFC.String(strings.TrimSpace(name)))
	}
	c.Whitelist = names
}

// Policy returns the whitelist policy for the configured field names.
func (c *Config) Policy() *whitelist.Policy {
	return whitelist.New(c.Whitelist...)
}
