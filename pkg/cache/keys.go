package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultKeyer is the standard key generator.
// Keys embed a kind prefix for debuggability and hash the variable parts,
// so arbitrary user input (collection names, palettes) cannot produce
// malformed or colliding keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SnapshotKey generates a key for a cached item snapshot.
func (k *DefaultKeyer) SnapshotKey(source, collection string) string {
	return hashKey("snapshot", source, collection)
}

// ArtifactKey generates a key for a rendered artifact.
func (k *DefaultKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", treeHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// keyType extracts the value kind from a key for hook reporting. Keys carry
// their kind prefix even under a ScopedKeyer, so a substring check suffices.
func keyType(key string) string {
	switch {
	case strings.Contains(key, "artifact:"):
		return "artifact"
	case strings.Contains(key, "snapshot:"):
		return "snapshot"
	default:
		return "other"
	}
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
