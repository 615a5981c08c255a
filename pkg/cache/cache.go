// Package cache provides caching for rendered visualization artifacts.
//
// Rendering a treemap SVG for a given hierarchy is deterministic: the same
// tree rendered with the same options produces the same bytes. The cache
// exploits this by keying artifacts on the tree's content hash plus the
// render options, so repeated requests for an unchanged visualization are
// served without touching the chart engine.
//
// # Backends
//
//   - FileCache: on-disk cache for CLI usage
//   - RedisCache: shared cache for server deployments
//   - NullCache: disabled caching (testing, one-shot renders)
//
// All backends implement the [Cache] interface and are safe for concurrent use.
package cache

import (
	"context"
	"time"
)

// TTLs for the different cached value kinds.
const (
	// TTLArtifact is the lifetime of rendered chart artifacts. Artifacts are
	// content-addressed by tree hash, so a long TTL is safe.
	TTLArtifact = 24 * time.Hour

	// TTLSnapshot is the lifetime of cached item snapshots pulled from the
	// data store. Short, since the store is the source of truth.
	TTLSnapshot = 5 * time.Minute
)

// Cache is the storage interface for cached values.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. Backends may substitute the
	// default lifetime for the value's kind when the TTL is zero.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// ArtifactKeyOpts are the render options that affect artifact bytes.
// Two renders with the same tree hash and the same opts are identical.
type ArtifactKeyOpts struct {
	Format      string // "svg", "dot", "txt"
	Width       int
	Height      int
	Language    string
	Palette     string // joined palette colors
	Zoom        bool
	Breadcrumbs bool
}

// Keyer generates cache keys. Implementations must be deterministic:
// identical inputs always produce identical keys.
type Keyer interface {
	// SnapshotKey generates a key for a cached item snapshot.
	SnapshotKey(source, collection string) string

	// ArtifactKey generates a key for a rendered artifact.
	ArtifactKey(treeHash string, opts ArtifactKeyOpts) string
}
