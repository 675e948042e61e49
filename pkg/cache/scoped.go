package cache

// ScopedKeyer wraps a Keyer with a prefix so that several editors or
// preview servers can share one Redis instance without colliding.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "flowcanvas:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// PatchKey generates a prefixed patch key.
func (k *ScopedKeyer) PatchKey(patchHash string) string {
	return k.prefix + k.inner.PatchKey(patchHash)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(patchHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(patchHash, opts)
}
