// Package config loads the flowcanvas editor configuration from TOML.
//
// Every key is optional; [Default] supplies the values used for absent
// keys. [Config.Validate] reports bad values as INVALID_INPUT errors, and the
// accessor methods turn the validated sections into the objects the editor
// consumes: canvas options, the class library, the completion provider and
// the artifact cache.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/completion"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/library"
)

// Config holds the editor configuration.
type Config struct {
	Canvas     CanvasConfig     `toml:"canvas"`
	Completion CompletionConfig `toml:"completion"`
	Library    LibraryConfig    `toml:"library"`
	Cache      CacheConfig      `toml:"cache"`
}

// CanvasConfig controls display feedback and grid behavior.
type CanvasConfig struct {
	NodeHover       bool   `toml:"node_hover"`
	ConnectionHover bool   `toml:"connection_hover"`
	PortTooltips    bool   `toml:"port_tooltips"`
	GridSize        int    `toml:"grid_size"`
	SnapToGrid      bool   `toml:"snap_to_grid"`
	ShowGrid        bool   `toml:"show_grid"`
	Metrics         string `toml:"metrics"` // "pixel" or "cell"
}

// CompletionConfig selects the label completion provider.
type CompletionConfig struct {
	Mode  string `toml:"mode"` // "none", "prefix", "fuzzy"
	Limit int    `toml:"limit"`
}

// LibraryConfig points at a class library file. An empty path selects the
// builtin classes.
type LibraryConfig struct {
	Path string `toml:"path"`
}

// CacheConfig controls the render artifact cache.
type CacheConfig struct {
	Disabled      bool   `toml:"disabled"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"` // namespaces keys in a shared Redis
	TTL           string `toml:"ttl"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Canvas:     CanvasConfig{NodeHover: true, GridSize: 10, SnapToGrid: true, Metrics: "pixel"},
		Completion: CompletionConfig{Mode: "prefix", Limit: 8},
		Cache:      CacheConfig{TTL: cache.DefaultTTL.String()},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Dir returns the flowcanvas configuration directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "flowcanvas")
}

// DefaultPath is the configuration file read when no path is given.
func DefaultPath() string { return filepath.Join(Dir(), "config.toml") }

// Decode parses TOML data over the defaults and validates the result.
// Relative library paths are kept as written.
func Decode(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. An empty path reads
// [DefaultPath] and falls back to the defaults when that file does not
// exist; an explicit path must exist. A relative library path is resolved
// against the directory of the configuration file.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	cfg, err := Decode(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	if p := cfg.Library.Path; p != "" && !filepath.IsAbs(p) {
		cfg.Library.Path = filepath.Join(filepath.Dir(path), p)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Canvas.GridSize < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "canvas.grid_size must be >= 1, got %d", c.Canvas.GridSize)
	}
	if _, ok := canvas.MetricsByName(c.Canvas.Metrics); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "canvas.metrics: unknown preset %q (valid: pixel, cell)", c.Canvas.Metrics)
	}
	if _, ok := completion.New(c.Completion.Mode, nil, 0); !ok {
		return errors.New(errors.ErrCodeInvalidInput, "completion.mode: unknown mode %q (valid: %s)",
			c.Completion.Mode, strings.Join(completion.Modes, ", "))
	}
	if c.Completion.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "completion.limit must be >= 0, got %d", c.Completion.Limit)
	}
	if _, err := c.Cache.ttl(); err != nil {
		return err
	}
	return nil
}

func (c CacheConfig) ttl() (time.Duration, error) {
	if c.TTL == "" {
		return cache.DefaultTTL, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "cache.ttl")
	}
	if d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}
	return d, nil
}

// =============================================================================
// Accessors
// =============================================================================

// LoadLibrary returns the configured class library.
func (c *Config) LoadLibrary() (*library.Library, error) {
	if c.Library.Path == "" {
		return library.Builtin(), nil
	}
	return library.Load(c.Library.Path)
}

// CompletionProvider builds the configured provider over the library's
// class names.
func (c *Config) CompletionProvider(lib *library.Library) completion.Provider {
	p, ok := completion.New(c.Completion.Mode, lib.Names(), c.Completion.Limit)
	if !ok {
		return completion.None
	}
	return p
}

// CanvasOptions translates the canvas section. Measurer, surface and
// completion are left for the caller, which knows the output medium.
func (c *Config) CanvasOptions(logger *log.Logger) canvas.Options {
	m, _ := canvas.MetricsByName(c.Canvas.Metrics)
	return canvas.Options{
		Metrics:         m,
		Logger:          logger,
		NodeHover:       c.Canvas.NodeHover,
		ConnectionHover: c.Canvas.ConnectionHover,
		PortTooltips:    c.Canvas.PortTooltips,
		GridSize:        c.Canvas.GridSize,
		SnapToGrid:      c.Canvas.SnapToGrid,
		ShowGrid:        c.Canvas.ShowGrid,
	}
}

// TTL returns the artifact lifetime.
func (c *Config) TTL() time.Duration {
	d, err := c.Cache.ttl()
	if err != nil {
		return cache.DefaultTTL
	}
	return d
}

// OpenCache opens the configured artifact cache: Redis when an address is
// set, otherwise a file cache in Dir or the user cache directory.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	if c.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	if c.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.RedisPassword,
			DB:       c.Cache.RedisDB,
		})
	}
	dir, err := c.CacheDir()
	if err != nil {
		return nil, err
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// Keyer returns the cache key scheme, prefixed when key_prefix is set.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.KeyPrefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), c.Cache.KeyPrefix)
}

// CacheDir returns the file cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return cache.DefaultDir()
}
