// Package cache stores converted images so that repeated conversions of the
// same input with the same parameters are served without recomputation.
//
// Three backends implement [Cache]:
//   - [FileCache] for the CLI, rooted at ~/.cache/pixelart by default
//   - [RedisCache] for servers sharing one cache across instances
//   - [NullCache] when caching is disabled
//
// Keys are produced by a [Keyer]. [DefaultKeyer] hashes the input digest
// together with every parameter that affects the output, and [ScopedKeyer]
// namespaces keys (the HTTP server uses "api:").
package cache

import (
	"context"
	"time"
)

// TTLs for cached entries.
const (
	TTLArtifact = 7 * 24 * time.Hour // converted images
	TTLPalette  = 7 * 24 * time.Hour // extracted palettes
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as hit == false with a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)

	// Set stores data under key. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// ArtifactKeyOpts lists the parameters that change a converted image.
type ArtifactKeyOpts struct {
	Kernel       int    `json:"kernel"`
	Scale        string `json:"scale"` // formatted so that float noise cannot split keys
	BlockSize    int    `json:"block_size"`
	MaxDimension int    `json:"max_dimension"`
	Format       string `json:"format"`
	JPEGQuality  int    `json:"jpeg_quality,omitempty"`
}

// PaletteKeyOpts lists the parameters that change an extracted palette.
type PaletteKeyOpts struct {
	Colors int    `json:"colors"`
	Method string `json:"method"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey identifies a converted image by the hash of its input.
	ArtifactKey(inputHash string, opts ArtifactKeyOpts) string

	// PaletteKey identifies an extracted palette by the hash of its input.
	PaletteKey(inputHash string, opts PaletteKeyOpts) string
}

// DefaultKeyer produces "artifact:<sha256>" style keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) ArtifactKey(inputHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", inputHash, opts)
}

func (DefaultKeyer) PaletteKey(inputHash string, opts PaletteKeyOpts) string {
	return hashKey("palette", inputHash, opts)
}
