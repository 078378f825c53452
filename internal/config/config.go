package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ClientURLEnv names the variable holding the single origin allowed to make
// cross-origin requests. Unset or empty means same-origin only.
const ClientURLEnv = "CLIENT_URL"

// Body decoding modes. Exactly one is active.
const (
	BodyModeJSON       = "json"
	BodyModeURLEncoded = "urlencoded"
	BodyModeText       = "text"
	BodyModeRaw        = "raw"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ClientURL       string        `koanf:"client_url"`
	BodyMode        string        `koanf:"body_mode"`  // json, urlencoded, text, raw
	BodyLimit       int64         `koanf:"body_limit"` // bytes
	PublicDir       string        `koanf:"public_dir"`
	ClientDir       string        `koanf:"client_dir"`
	IndexFile       string        `koanf:"index_file"`
	RequestTimeout  time.Duration `koanf:"request_timeout"` // 0 disables
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":             3310,
	"server.body_mode":        BodyModeJSON,
	"server.body_limit":       100 * 1024,
	"server.public_dir":       "public",
	"server.client_dir":       "../client/dist",
	"server.index_file":       "index.html",
	"server.request_timeout":  "0s",
	"server.shutdown_timeout": "10s",
	"storage.type":            "sqlite",
	"storage.sqlite.path":     "./data/app.db",
	"telemetry.service_name":  "fullstack-app-server",
}

// Load reads configuration from the optional YAML file at path, then APP_
// prefixed environment variables (APP_SERVER__PORT -> server.port), then the
// bare CLIENT_URL variable. Later sources override earlier ones.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// File not found is OK, we'll use env vars
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "APP_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if v, ok := os.LookupEnv(ClientURLEnv); ok {
		k.Set("server.client_url", v)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Server.ClientURL = strings.TrimSpace(cfg.Server.ClientURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Server.BodyMode {
	case BodyModeJSON, BodyModeURLEncoded, BodyModeText, BodyModeRaw:
	default:
		return fmt.Errorf("server.body_mode %q: must be one of json, urlencoded, text, raw", c.Server.BodyMode)
	}

	if c.Server.BodyLimit <= 0 {
		return fmt.Errorf("server.body_limit must be positive, got %d", c.Server.BodyLimit)
	}

	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.type %q: must be sqlite or memory", c.Storage.Type)
	}

	return nil
}
