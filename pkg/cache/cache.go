// Package cache stores rendered flowcanvas artifacts.
//
// Rendering a patch is deterministic: the same patch document with the same
// canvas options and output format always yields the same bytes. The batch
// renderer and the preview server therefore key artifacts by a hash of their
// inputs and keep them in one of three backends:
//   - [FileCache]: a directory tree, the default for the CLI
//   - [RedisCache]: a shared Redis instance for multi-process setups
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so that deployments can namespace them with
// [NewScopedKeyer].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// DefaultTTL is the artifact lifetime used when the configuration gives none.
const DefaultTTL = 24 * time.Hour

// =============================================================================
// Keys
// =============================================================================

// ArtifactKeyOpts are the render inputs besides the patch itself.
type ArtifactKeyOpts struct {
	Format    string   `json:"format"`
	Metrics   string   `json:"metrics,omitempty"`
	ShowGrid  bool     `json:"show_grid,omitempty"`
	GridSize  int      `json:"grid_size,omitempty"`
	Selection []string `json:"selection,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// PatchKey identifies a decoded patch document by content hash.
	PatchKey(patchHash string) string

	// ArtifactKey identifies a rendered artifact of a patch.
	ArtifactKey(patchHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces unprefixed keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// PatchKey returns "patch:<hash>".
func (DefaultKeyer) PatchKey(patchHash string) string {
	return "patch:" + patchHash
}

// ArtifactKey returns "artifact:<sha256(patchHash, opts)>".
func (DefaultKeyer) ArtifactKey(patchHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", patchHash, opts)
}
