package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/canvas"
	"github.com/matzehuels/flowcanvas/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.Canvas.NodeHover || cfg.Canvas.PortTooltips {
		t.Error("default display mode should be node hover")
	}
	if cfg.Canvas.GridSize != 10 || !cfg.Canvas.SnapToGrid {
		t.Errorf("default grid = %d snap %v", cfg.Canvas.GridSize, cfg.Canvas.SnapToGrid)
	}
	if cfg.Completion.Mode != "prefix" || cfg.Completion.Limit != 8 {
		t.Errorf("default completion = %+v", cfg.Completion)
	}
	if cfg.TTL() != cache.DefaultTTL {
		t.Errorf("TTL() = %v, want %v", cfg.TTL(), cache.DefaultTTL)
	}
}

func TestDecodeOverridesDefaults(t *testing.T) {
	cfg, err := Decode(`
[canvas]
port_tooltips = true
grid_size = 4
metrics = "cell"

[completion]
mode = "fuzzy"

[cache]
ttl = "90m"
`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := Default()
	want.Canvas.PortTooltips = true
	want.Canvas.GridSize = 4
	want.Canvas.Metrics = "cell"
	want.Completion.Mode = "fuzzy"
	want.Cache.TTL = "90m"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
	if cfg.TTL() != 90*time.Minute {
		t.Errorf("TTL() = %v", cfg.TTL())
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", "[canvas\n"},
		{"unknown key", "[canvas]\nzoom = 2\n"},
		{"grid size", "[canvas]\ngrid_size = 0\n"},
		{"metrics", "[canvas]\nmetrics = \"inches\"\n"},
		{"mode", "[completion]\nmode = \"psychic\"\n"},
		{"limit", "[completion]\nlimit = -1\n"},
		{"ttl", "[cache]\nttl = \"soon\"\n"},
		{"negative ttl", "[cache]\nttl = \"-1h\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.doc)
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Decode() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/test-xdg")
	if got := Dir(); got != "/tmp/test-xdg/flowcanvas" {
		t.Errorf("Dir() = %q", got)
	}
	if got := DefaultPath(); got != "/tmp/test-xdg/flowcanvas/config.toml" {
		t.Errorf("DefaultPath() = %q", got)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without a file: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("missing default file should give defaults (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing explicit) error = %v, want FILE_NOT_FOUND", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[library]\npath = \"classes.toml\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if want := filepath.Join(dir, "classes.toml"); cfg.Library.Path != want {
		t.Errorf("Library.Path = %q, want %q", cfg.Library.Path, want)
	}

	if err := os.WriteFile(path, []byte("[canvas]\ngrid_size = -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Load(invalid) error = %v, want INVALID_INPUT", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Canvas.ShowGrid = true
	cfg.Completion.Limit = 3
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCanvasOptions(t *testing.T) {
	cfg := Default()
	cfg.Canvas.Metrics = "cell"
	cfg.Canvas.ShowGrid = true
	o := cfg.CanvasOptions(nil)
	if o.Metrics != canvas.CellMetrics() {
		t.Errorf("Metrics = %+v, want cell preset", o.Metrics)
	}
	if !o.NodeHover || !o.SnapToGrid || !o.ShowGrid || o.GridSize != 10 {
		t.Errorf("Options = %+v", o)
	}
}

func TestLibraryAndCompletion(t *testing.T) {
	cfg := Default()
	lib, err := cfg.LoadLibrary()
	if err != nil {
		t.Fatalf("LoadLibrary() error: %v", err)
	}
	if lib.Len() == 0 {
		t.Fatal("builtin library is empty")
	}
	got := cfg.CompletionProvider(lib).Complete("con")
	if diff := cmp.Diff([]string{"concat"}, got); diff != "" {
		t.Errorf("Complete(con) mismatch (-want +got):\n%s", diff)
	}

	cfg.Library.Path = filepath.Join(t.TempDir(), "missing.toml")
	if _, err := cfg.LoadLibrary(); err == nil {
		t.Error("LoadLibrary() with a missing file should fail")
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	cfg.Cache.Disabled = true
	c, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("disabled cache = %T, want *cache.NullCache", c)
	}

	cfg = Default()
	cfg.Cache.Dir = t.TempDir()
	c, err = cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	fc, ok := c.(*cache.FileCache)
	if !ok || fc.Dir() != cfg.Cache.Dir {
		t.Errorf("file cache = %T", c)
	}
}

func TestKeyer(t *testing.T) {
	cfg := Default()
	if got := cfg.Keyer().PatchKey("abc"); got != "patch:abc" {
		t.Errorf("default PatchKey = %q", got)
	}
	cfg.Cache.KeyPrefix = "team:"
	if got := cfg.Keyer().PatchKey("abc"); got != "team:patch:abc" {
		t.Errorf("scoped PatchKey = %q", got)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "patches", "config.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Completion.Mode != "fuzzy" || cfg.Completion.Limit != 6 {
		t.Errorf("completion = %+v", cfg.Completion)
	}
	if !cfg.Canvas.ShowGrid || cfg.TTL() != 24*time.Hour {
		t.Errorf("canvas = %+v, ttl = %s", cfg.Canvas, cfg.TTL())
	}
}
