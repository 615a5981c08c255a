package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// Useful when several mounted visualizations share one Redis instance and
// must not serve each other's artifacts (different palettes, languages).
//
// Example usage:
//
//	vizKeyer := NewScopedKeyer(NewDefaultKeyer(), "viz:main:")
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

// SnapshotKey generates a prefixed key for item snapshot caching.
func (k *ScopedKeyer) SnapshotKey(source, collection string) string {
	return k.prefix + k.inner.SnapshotKey(source, collection)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(treeHash, opts)
}
