// Package cli implements the channelkit command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/channelkit/channelkit/internal/config"
	"github.com/channelkit/channelkit/pkg/buildinfo"
	"github.com/channelkit/channelkit/pkg/cache"
	"github.com/channelkit/channelkit/pkg/channel"
	"github.com/channelkit/channelkit/pkg/errors"
	"github.com/channelkit/channelkit/pkg/httputil"
	"github.com/channelkit/channelkit/pkg/platform"
	"github.com/channelkit/channelkit/pkg/session"
)

// appName is the application name used for directories and display.
const appName = "channelkit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Channelkit develops and deploys synthetic-data channels",
		Long:         `Channelkit is a CLI for developing synthetic-data channels: validate graph descriptors, preview execution plans, mount asset volumes, and submit runs to the platform.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.validateCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.graphsCommand())
	root.AddCommand(c.nodesCommand())
	root.AddCommand(c.loginCommand())
	root.AddCommand(c.logoutCommand())
	root.AddCommand(c.whoamiCommand())
	root.AddCommand(c.mountCommand())
	root.AddCommand(c.deployCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the layered tool configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(nil)
}

// loadBundle opens the channel bundle rooted at dir, defaulting to the
// working directory.
func loadBundle(dir string) (*channel.Bundle, error) {
	if dir == "" {
		dir = "."
	}
	return channel.Load(dir)
}

// newByteCache opens the configured byte cache backend.
func newByteCache(cfg *config.Config) (cache.Cache, error) {
	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.Open(cfg.Cache.Backend, dir, cfg.Cache.RedisAddr)
}

// newHTTPCache builds the platform response cache, or nil when caching is
// off.
func newHTTPCache(cfg *config.Config) *httputil.Cache {
	if cfg.Cache.Backend == cache.BackendOff {
		return nil
	}
	hc, err := httputil.NewCache(cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		return nil
	}
	return hc
}

// currentSession loads the stored platform login.
func currentSession(ctx context.Context) (*session.Session, error) {
	store, err := session.NewCLIStore()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open session store")
	}
	sess, err := store.GetSession(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read session")
	}
	if sess == nil {
		return nil, errors.New(errors.ErrCodeUnauthorized, "not logged in (run 'channelkit login' first)")
	}
	return sess, nil
}

// newPlatformClient builds an authenticated platform client from the stored
// session and configured cache.
func newPlatformClient(ctx context.Context, cfg *config.Config) (*platform.Client, error) {
	sess, err := currentSession(ctx)
	if err != nil {
		return nil, err
	}
	return platform.NewClient(cfg.Platform.URL, sess.AccessToken, newHTTPCache(cfg)), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/channelkit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
