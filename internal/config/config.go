// Package config loads the declarr configuration file. Connection and
// logging settings are layered through koanf (built-in defaults, then the
// YAML file, then DECLARR_* environment variables); the settings tree is
// decoded separately with yaml.v3, which drives the per-kind definition
// unmarshalers.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/declarr/declarr/internal/secrets"
	"github.com/declarr/declarr/internal/settings"
)

const envPrefix = "DECLARR_"

// Config is the full application configuration.
type Config struct {
	Radarr Radarr `koanf:"radarr"`
	Log    Log    `koanf:"log"`
}

// Radarr holds the connection settings for the managed instance. The
// instance's settings tree lives alongside them in the file but is decoded
// separately.
type Radarr struct {
	Hostname string `koanf:"hostname"`
	Port     int    `koanf:"port"`
	Protocol string `koanf:"protocol"`
	URLBase  string `koanf:"url_base"`
	APIKey   string `koanf:"api_key"`

	Settings settings.Settings `koanf:"-"`
}

// Secrets returns the connection settings in the form the secrets resolver
// consumes.
func (r Radarr) Secrets() secrets.Secrets {
	return secrets.Secrets{
		Hostname: r.Hostname,
		Port:     r.Port,
		Protocol: r.Protocol,
		URLBase:  r.URLBase,
		APIKey:   r.APIKey,
	}
}

// Log holds logging settings.
type Log struct {
	Level string `koanf:"level"`
}

func defaults() Config {
	return Config{
		Radarr: Radarr{
			Hostname: "localhost",
			Port:     7878,
			Protocol: "http",
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the configuration file at path, applying defaults below it and
// environment overrides above it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	// DECLARR_RADARR__API_KEY -> radarr.api_key; a double underscore
	// separates path segments so key names may contain single underscores.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	cfg.Radarr.Settings = settings.New()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	var doc struct {
		Radarr struct {
			Settings *settings.Settings `yaml:"settings"`
		} `yaml:"radarr"`
	}
	doc.Radarr.Settings = &cfg.Radarr.Settings
	if err := yamlv3.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks connection settings and every section's local invariants.
func (c *Config) Validate() error {
	if c.Radarr.Hostname == "" {
		return fmt.Errorf("radarr.hostname must be set")
	}
	if c.Radarr.Port < 1 || c.Radarr.Port > 65535 {
		return fmt.Errorf("radarr.port must be between 1 and 65535, got %d", c.Radarr.Port)
	}
	switch c.Radarr.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("radarr.protocol must be http or https, got %q", c.Radarr.Protocol)
	}
	return c.Radarr.Settings.Validate()
}
