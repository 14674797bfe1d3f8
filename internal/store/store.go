// Package store implements the write and read pipelines (spec §4.3/4.4):
// segmentation, per-segment codec encode/decode, 8-way chunk dispersion,
// and the catalog that ties a file hash to its ordered segment hashes.
package store

import (
	"carbonis/internal/nodeconfig"
)

// Store is the node's content-addressed storage engine, bound to one
// resolved config (private key + 8 volumes).
type Store struct {
	cfg *nodeconfig.Config
}

// New binds a Store to cfg. cfg is read-only from this point on.
func New(cfg *nodeconfig.Config) *Store {
	return &Store{cfg: cfg}
}

// chunksDir is the compile-time subdirectory chunk files live under on
// each volume, parallel to catalog.Dir.
const chunksDir = "segments"
