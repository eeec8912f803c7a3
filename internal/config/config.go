// Package config loads channelkit configuration with the usual layering:
// defaults, then channelkit.toml, then CHANNELKIT_* environment variables,
// then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for channelkit.
type Config struct {
	Platform PlatformConfig `koanf:"platform"`
	Cache    CacheConfig    `koanf:"cache"`
	Mount    MountConfig    `koanf:"mount"`
	Serve    ServeConfig    `koanf:"serve"`
	Log      LogConfig      `koanf:"log"`
}

// PlatformConfig configures the platform API client.
type PlatformConfig struct {
	URL string `koanf:"url"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	// Backend is "file", "redis", or "off".
	Backend string `koanf:"backend"`
	// Dir is the file backend's directory; empty means
	// ~/.cache/channelkit.
	Dir string `koanf:"dir"`
	// TTL is the entry lifetime; zero means no expiration.
	TTL time.Duration `koanf:"ttl"`
	// RedisAddr is the redis backend's address.
	RedisAddr string `koanf:"redis_addr"`
}

// MountConfig configures where volume mounts land.
type MountConfig struct {
	// Dir is the root for mounted volumes; each volume gets a
	// subdirectory named after it. Empty means
	// ~/.cache/channelkit/volumes.
	Dir string `koanf:"dir"`
}

// ServeConfig configures the local API server.
type ServeConfig struct {
	Addr string `koanf:"addr"`
	// MongoURI enables the Mongo run store when non-empty; otherwise
	// runs are kept in memory.
	MongoURI string `koanf:"mongo_uri"`
	// NoAuth skips platform authentication, for offline development.
	NoAuth bool `koanf:"no_auth"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is DEBUG, INFO, WARN, or ERROR.
	Level string `koanf:"level"`
}

// FileName is the config file channelkit looks for, first in the working
// directory and then under ~/.config/channelkit/.
const FileName = "channelkit.toml"

// EnvPrefix is the environment variable prefix; CHANNELKIT_SERVE_ADDR
// maps to serve.addr.
const EnvPrefix = "CHANNELKIT_"

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"platform.url":     "https://api.channelkit.dev",
		"cache.backend":    "file",
		"cache.dir":        "",
		"cache.ttl":        time.Hour,
		"cache.redis_addr": "localhost:6379",
		"mount.dir":        "",
		"serve.addr":       ":8080",
		"serve.mongo_uri":  "",
		"serve.no_auth":    false,
		"log.level":        "INFO",
	}
}

// Load builds the configuration. Priority: flags > env > config file >
// defaults. Pass nil for flags when loading outside a command.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// Config files are optional; the working directory wins over the
	// home directory copy.
	if home, err := os.UserHomeDir(); err == nil {
		_ = k.Load(file.Provider(filepath.Join(home, ".config", "channelkit", FileName)), toml.Parser())
	}
	_ = k.Load(file.Provider(FileName), toml.Parser())

	if err := k.Load(env.Provider(EnvPrefix, ".", envToKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envToKey maps CHANNELKIT_CACHE_REDIS_ADDR to cache.redis_addr: the
// first underscore separates the section, the rest stay literal.
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// MountDir returns the effective volume mount root.
func (c *Config) MountDir() (string, error) {
	if c.Mount.Dir != "" {
		return c.Mount.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "channelkit", "volumes"), nil
}

type rawMapProvider struct {
	m map[string]any
}

func mapProvider(m map[string]any) *rawMapProvider {
	return &rawMapProvider{m: m}
}

func (p *rawMapProvider) Read() (map[string]any, error) {
	out := map[string]any{}
	for key, value := range p.m {
		parts := strings.Split(key, ".")
		cur := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[part] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = value
	}
	return out, nil
}

func (p *rawMapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
