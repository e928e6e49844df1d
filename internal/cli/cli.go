// Package cli implements the pixelart command-line interface.
//
// # Commands
//
//   - convert: pixelate an image file or every image in a directory
//   - palette: print the dominant colors of an image
//   - serve: run the HTTP API
//   - cache: inspect and clear the artifact cache
//   - completion: generate shell completion scripts
//
// # Configuration
//
// Settings are merged from defaults, the TOML config file, a .env file and
// PIXELART_* environment variables (see pkg/config). Flags given on the
// command line win over all of them.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs pipeline and cache events through the observability hooks.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pixelart/pkg/cache"
	"github.com/matzehuels/pixelart/pkg/config"
	"github.com/matzehuels/pixelart/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	envFile    string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// loadConfig merges the configuration sources selected by the global flags.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(config.LoadOptions{Path: c.configPath, EnvFile: c.envFile})
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("configuration loaded", "sources", cfg.Source)
	return nil
}

// config returns the loaded configuration, or the defaults before loading.
func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner. A non-empty scope namespaces the
// cache keys so that different front ends never share entries.
func (c *CLI) newRunner(ctx context.Context, noCache bool, scope string) *pipeline.Runner {
	var keyer cache.Keyer
	if scope != "" {
		keyer = cache.NewScopedKeyer(nil, scope)
	}
	r := pipeline.NewRunner(c.newCache(ctx, noCache), keyer, c.Logger)
	r.TTL = c.config().Cache.TTL.Duration
	return r
}

// newCache selects the cache backend. Backends that cannot be reached
// degrade to no caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	cfg := c.config()
	if noCache || !cfg.Cache.Enabled {
		return cache.NewNullCache()
	}

	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   appName + ":",
		})
		if err != nil {
			c.Logger.Warn("caching disabled", "err", err)
			return cache.NewNullCache()
		}
		c.Logger.Debug("using redis cache", "addr", cfg.Cache.RedisAddr)
		return rc
	}

	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// cacheDir returns the file cache directory (~/.cache/pixelart unless
// configured otherwise).
func (c *CLI) cacheDir() (string, error) {
	return c.config().CacheDir()
}
