package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcanvas/pkg/cache"
	"github.com/matzehuels/flowcanvas/pkg/dataflow/memory"
	"github.com/matzehuels/flowcanvas/pkg/errors"
	"github.com/matzehuels/flowcanvas/pkg/observability"
	"github.com/matzehuels/flowcanvas/pkg/patch"
)

// Runner encapsulates pipeline execution with caching.
// Both the render command and the preview server use it.
//
// The Runner is stateless except for the cache and logger: it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete load → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stage 1: Load
	loadStart := time.Now()
	g, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Graph = g
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.ConnectionCount = g.ConnectionCount()
	for _, n := range g.Nodes() {
		if !n.Valid() {
			result.Stats.InvalidCount++
		}
	}

	result.Patch = patch.Capture(g)
	canonical, err := patch.Marshal(result.Patch, patch.FormatJSON)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode canonical patch")
	}
	result.PatchHash = cache.Hash(canonical)
	r.storePatch(ctx, result.PatchHash, canonical, opts)

	r.Logger.Info("loaded patch",
		"source", opts.Source(),
		"nodes", result.Stats.NodeCount,
		"connections", result.Stats.ConnectionCount,
		"invalid", result.Stats.InvalidCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, hits, err := r.RenderWithCacheInfo(ctx, g, result.PatchHash, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.Hits = hits
	result.CacheInfo.RenderHit = len(hits) == len(opts.Formats)

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", len(hits),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads the patch named by opts and rebuilds it as a graph over
// opts.Library. Connection identities are sequential so artifacts of the
// same document are byte-identical.
func (r *Runner) Load(ctx context.Context, opts Options) (g *memory.Graph, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}

	source := opts.Source()
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, source)
	start := time.Now()
	defer func() {
		count := 0
		if g != nil {
			count = g.NodeCount()
		}
		hooks.OnLoadComplete(ctx, source, count, time.Since(start), err)
	}()

	p := opts.Patch
	if p == nil {
		if p, err = patch.Import(opts.PatchPath); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Build(
		memory.WithLibrary(opts.Library),
		memory.WithLogger(opts.Logger),
		memory.WithIDGenerator(memory.SequentialIDs("c")),
	)
}

// RenderWithCacheInfo renders every requested format of g and returns the
// formats that were served from cache. Only missing formats are painted.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *memory.Graph, patchHash string, opts Options) (map[string][]byte, []string, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var hits, missing []string
	for _, format := range opts.Formats {
		if !opts.Refresh {
			if data, ok := r.cached(ctx, patchHash, format, opts); ok {
				artifacts[format] = data
				hits = append(hits, format)
				continue
			}
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, hits, nil
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, missing)
	start := time.Now()
	rendered, err := RenderGraph(ctx, g, missing, opts)
	hooks.OnRenderComplete(ctx, missing, time.Since(start), err)
	if err != nil {
		return nil, nil, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(patchHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, opts.TTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "err", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	return artifacts, hits, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *memory.Graph, patchHash string, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, patchHash, opts)
	return artifacts, err
}

// LookupPatch returns the canonical patch stored under hash by a previous
// Execute.
func (r *Runner) LookupPatch(ctx context.Context, hash string) (*patch.Patch, error) {
	data, ok, err := r.Cache.Get(ctx, r.Keyer.PatchKey(hash))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "patch")
		return nil, errors.New(errors.ErrCodeNotFound, "no patch with hash %s", hash)
	}
	observability.Cache().OnCacheHit(ctx, "patch")
	return patch.Decode(bytes.NewReader(data), patch.FormatJSON)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cached(ctx context.Context, patchHash, format string, opts Options) ([]byte, bool) {
	key := r.Keyer.ArtifactKey(patchHash, opts.ArtifactKeyOpts(format))
	data, ok, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "format", format, "err", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "artifact")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "artifact")
	return data, true
}

func (r *Runner) storePatch(ctx context.Context, hash string, data []byte, opts Options) {
	if err := r.Cache.Set(ctx, r.Keyer.PatchKey(hash), data, opts.TTL); err != nil {
		r.Logger.Debug("patch not cached", "hash", hash, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "patch", len(data))
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
