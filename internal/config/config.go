// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config path.
const EnvConfigPath = "MCP_HELLO_CONFIG"

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Tools     ToolsConfig     `yaml:"tools"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

type TransportConfig struct {
	Kind string `yaml:"kind"` // stdio or http
	Addr string `yaml:"addr"` // listen address for http
}

type ToolsConfig struct {
	// Enabled restricts the built-in tools served; empty serves all.
	Enabled []string `yaml:"enabled"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Name: "hello-world-server", Version: "1.0.0"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Transport: TransportConfig{Kind: TransportStdio, Addr: ":3000"},
	}
}

// ResolvePath picks the config path: the flag value, then EnvConfigPath.
// An empty result means built-in defaults.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// Load reads path over the defaults. An empty path yields Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Name == "" {
		errs = append(errs, errors.New("server.name is required"))
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	switch c.Transport.Kind {
	case TransportStdio:
	case TransportHTTP:
		if c.Transport.Addr == "" {
			errs = append(errs, errors.New("transport.addr is required for http"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.kind %q must be stdio or http", c.Transport.Kind))
	}
	return errors.Join(errs...)
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// NewLogger builds the slog logger described by c, writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
