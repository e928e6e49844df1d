// Package config loads pixelart settings from layered sources.
//
// Sources are applied from lowest to highest precedence:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, $XDG_CONFIG_HOME/pixelart/config.toml unless a path is given
//  3. a .env file in the working directory
//  4. PIXELART_* environment variables
//
// Command-line flags are applied on top by the CLI.
//
// Example config.toml:
//
//	kernel = 9
//	scale = 0.05
//	output_dir = "~/Pictures/pixelart"
//
//	[cache]
//	enabled = true
//	ttl = "72h"
//	redis_addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//	max_upload_mb = 32
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	perrors "github.com/matzehuels/pixelart/pkg/errors"
	"github.com/matzehuels/pixelart/pkg/pipeline"
)

// AppName names the config and cache directories.
const AppName = "pixelart"

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PIXELART_"

// Config is the merged configuration.
type Config struct {
	Kernel       int     `toml:"kernel"`
	Scale        float64 `toml:"scale"`
	BlockSize    int     `toml:"block_size"`
	Workers      int     `toml:"workers"`
	MaxDimension int     `toml:"max_dimension"`
	JPEGQuality  int     `toml:"jpeg_quality"`
	OutputDir    string  `toml:"output_dir"`

	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`

	// Source lists the files that contributed, for diagnostics.
	Source []string `toml:"-"`
}

// CacheConfig selects and tunes the artifact cache.
type CacheConfig struct {
	Enabled       bool     `toml:"enabled"`
	Dir           string   `toml:"dir"` // file cache root, defaults to the XDG cache dir
	TTL           Duration `toml:"ttl"`
	RedisAddr     string   `toml:"redis_addr"` // selects the redis backend when set
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
}

// ServerConfig configures `pixelart serve`.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Duration is a time.Duration that decodes from strings like "72h".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Kernel:      pipeline.DefaultKernelSize,
		Scale:       pipeline.DefaultScaleFactor,
		JPEGQuality: pipeline.DefaultJPEGQuality,
		Cache:       CacheConfig{Enabled: true},
		Server:      ServerConfig{Addr: ":8080", MaxUploadMB: 32},
	}
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is an explicit config file. It must exist when set. When empty,
	// DefaultPath is used if present.
	Path string

	// EnvFile is the dotenv file to read, ".env" when empty. A missing file
	// is ignored.
	EnvFile string

	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)
}

// Load merges all sources into a Config.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	if err == nil {
		cfg.Source = append(cfg.Source, envFile)
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) (string, bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects conversion settings that are out of range. Every source
// sets values explicitly, so zero is an error here rather than a default.
func (c *Config) Validate() error {
	if err := perrors.ValidateKernelSize(c.Kernel); err != nil {
		return err
	}
	if err := perrors.ValidateScaleFactor(c.Scale); err != nil {
		return err
	}
	if c.BlockSize < 0 {
		return perrors.New(perrors.ErrCodeInvalidBlockSize, "block size must not be negative, got %d", c.BlockSize)
	}
	return perrors.ValidateQuality(c.JPEGQuality)
}

func (c *Config) loadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	c.Source = append(c.Source, path)
	return nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	ints := map[string]*int{
		"KERNEL":        &c.Kernel,
		"BLOCK_SIZE":    &c.BlockSize,
		"WORKERS":       &c.Workers,
		"MAX_DIMENSION": &c.MaxDimension,
		"JPEG_QUALITY":  &c.JPEGQuality,
		"REDIS_DB":      &c.Cache.RedisDB,
		"MAX_UPLOAD_MB": &c.Server.MaxUploadMB,
	}
	for key, dst := range ints {
		if v, ok := env(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"OUTPUT_DIR":     &c.OutputDir,
		"CACHE_DIR":      &c.Cache.Dir,
		"REDIS_ADDR":     &c.Cache.RedisAddr,
		"REDIS_PASSWORD": &c.Cache.RedisPassword,
		"SERVER_ADDR":    &c.Server.Addr,
	}
	for key, dst := range strs {
		if v, ok := env(key); ok {
			*dst = v
		}
	}

	if v, ok := env("SCALE"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%sSCALE: %w", EnvPrefix, err)
		}
		c.Scale = f
	}
	if v, ok := env("CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_ENABLED: %w", EnvPrefix, err)
		}
		c.Cache.Enabled = b
	}
	if v, ok := env("CACHE_TTL"); ok {
		if err := c.Cache.TTL.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", EnvPrefix, err)
		}
	}
	return nil
}

// PipelineOptions converts the conversion settings into pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		KernelSize:   c.Kernel,
		ScaleFactor:  c.Scale,
		BlockSize:    c.BlockSize,
		Workers:      c.Workers,
		MaxDimension: c.MaxDimension,
		JPEGQuality:  c.JPEGQuality,
	}
}

// MaxUploadBytes returns the server request body limit.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// DefaultPath returns $XDG_CONFIG_HOME/pixelart/config.toml, falling back to
// ~/.config. It returns "" when no home directory is known.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "config.toml")
}

// CacheDir returns the file cache root: Cache.Dir when set, otherwise
// $XDG_CACHE_HOME/pixelart or ~/.cache/pixelart.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return expandHome(c.Cache.Dir), nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}

// ResolvedOutputDir returns OutputDir with a leading ~ expanded.
func (c *Config) ResolvedOutputDir() string {
	return expandHome(c.OutputDir)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
