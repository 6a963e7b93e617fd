package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Spec      SpecConfig      `koanf:"spec"`
	Audit     AuditConfig     `koanf:"audit"`
	Generator GeneratorConfig `koanf:"generator"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port int `koanf:"port"`

	// Timeout bounds each request's context, e.g. "30s". Zero disables it.
	Timeout time.Duration `koanf:"timeout"`
}

type SpecConfig struct {
	// Source is an inline document, a file path, or an HTTP(S) URL.
	Source string `koanf:"source"`
}

type AuditConfig struct {
	Type string `koanf:"type"` // memory, sqlite
	Path string `koanf:"path"`
}

type GeneratorConfig struct {
	// Seed fixes the fake-data source for reproducible generated responses.
	Seed uint64 `koanf:"seed"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// Load reads configuration from the given YAML file (a missing file is fine)
// with MOCKSMITH_-prefixed environment variables layered on top.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Environment variables can override file config
	if err := k.Load(env.Provider("MOCKSMITH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "MOCKSMITH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("server.port") {
		k.Set("server.port", 4000)
	}
	if !k.Exists("audit.type") {
		k.Set("audit.type", "memory")
	}
	if !k.Exists("logging.level") {
		k.Set("logging.level", "info")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LogLevel maps the configured level name to a slog level string understood
// by the binary's logger setup.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}
