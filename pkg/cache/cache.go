// Package cache stores layout stage results and rendered artifacts.
//
// Layouts are deterministic functions of their input, so entries are
// content addressed: the key is a hash of the exact stage input plus the
// options that influence it. A hit returns the bytes the engine produced
// for identical input, which keeps cached renders identical to uncached
// ones.
//
// Backends:
//   - [NullCache] stores nothing
//   - [MemoryCache] is a bounded in-process LRU
//   - [FileCache] persists entries under a directory for the CLI
//   - [RedisCache] shares entries between server replicas
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the value stored under key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Entry lifetimes.
const (
	TTLLayout   = 7 * 24 * time.Hour
	TTLArtifact = 24 * time.Hour
)

// Keyer builds cache keys.
type Keyer interface {
	// LayoutKey addresses the output of one layout stage.
	LayoutKey(inputHash string, opts LayoutKeyOpts) string
	// ArtifactKey addresses one rendered export of a diagram.
	ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts are the options that change a stage's output.
type LayoutKeyOpts struct {
	Stage     string `json:"stage"`
	Engine    string `json:"engine"`
	Algorithm string `json:"algorithm,omitempty"`
}

// ArtifactKeyOpts are the options that change an export.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer produces "layout:<hash>" and "artifact:<hash>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements [Keyer].
func (DefaultKeyer) LayoutKey(inputHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", inputHash, opts)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(diagramHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", diagramHash, opts)
}
