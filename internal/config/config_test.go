package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Platform.URL != "https://api.channelkit.dev" {
		t.Errorf("platform.url = %q", cfg.Platform.URL)
	}
	if cfg.Cache.Backend != "file" || cfg.Cache.TTL != time.Hour {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Serve.Addr != ":8080" || cfg.Log.Level != "INFO" {
		t.Errorf("serve = %+v, log = %+v", cfg.Serve, cfg.Log)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CHANNELKIT_PLATFORM_URL", "https://platform.internal")
	t.Setenv("CHANNELKIT_LOG_LEVEL", "DEBUG")
	t.Setenv("CHANNELKIT_CACHE_REDIS_ADDR", "redis.internal:6379")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Platform.URL != "https://platform.internal" {
		t.Errorf("platform.url = %q", cfg.Platform.URL)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Cache.RedisAddr != "redis.internal:6379" {
		t.Errorf("cache.redis_addr = %q", cfg.Cache.RedisAddr)
	}
}

func TestLoadFlagsWin(t *testing.T) {
	t.Setenv("CHANNELKIT_SERVE_ADDR", ":9999")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("serve.addr", ":8080", "")
	if err := flags.Parse([]string{"--serve.addr", ":7070"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Serve.Addr != ":7070" {
		t.Errorf("serve.addr = %q, want flag to win", cfg.Serve.Addr)
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CHANNELKIT_PLATFORM_URL", "platform.url"},
		{"CHANNELKIT_CACHE_REDIS_ADDR", "cache.redis_addr"},
		{"CHANNELKIT_SERVE_NO_AUTH", "serve.no_auth"},
	}
	for _, tt := range tests {
		if got := envToKey(tt.in); got != tt.want {
			t.Errorf("envToKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMountDirDefault(t *testing.T) {
	cfg := &Config{}
	dir, err := cfg.MountDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir == "" {
		t.Error("empty mount dir")
	}

	cfg.Mount.Dir = "/data/volumes"
	dir, _ = cfg.MountDir()
	if dir != "/data/volumes" {
		t.Errorf("mount dir = %q", dir)
	}
}
