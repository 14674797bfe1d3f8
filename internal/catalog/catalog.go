// Package catalog implements the per-file catalog: an ordered list of
// segment hashes, replicated byte-identical to all 8 volumes at write
// time and read from whichever volume still has a copy.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"carbonis/internal/ids"
	"carbonis/internal/nodeconfig"
	"carbonis/internal/storeerr"
)

// Dir is the compile-time constant subdirectory catalogs live under on
// each volume.
const Dir = "catalogs"

const hashSize = 32

// Write replicates the catalog payload (the concatenated segment hashes,
// in plaintext order) to all 8 volumes in parallel, using exclusive
// create so a pre-existing replica surfaces AlreadyExists rather than
// being silently overwritten.
func Write(ctx context.Context, volumes [8]nodeconfig.Volume, fh ids.FileHash, segmentHashes []ids.SegmentHash) error {
	if len(segmentHashes) == 0 {
		return fmt.Errorf("catalog must contain at least one segment hash: %w", storeerr.ErrFormatViolation)
	}
	payload := make([]byte, 0, len(segmentHashes)*hashSize)
	for _, h := range segmentHashes {
		payload = append(payload, h[:]...)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range volumes {
		i := i
		g.Go(func() error {
			return writeReplica(gctx, volumes[i], fh, payload)
		})
	}
	return g.Wait()
}

func writeReplica(ctx context.Context, vol nodeconfig.Volume, fh ids.FileHash, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(vol.Path, Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w: %w", dir, err, storeerr.ErrIO)
	}
	path := filepath.Join(dir, fh.Hex())
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("catalog %s: %w", path, storeerr.ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w: %w", path, err, storeerr.ErrIO)
	}
	defer f.Close()
	if _, err := f.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w: %w", path, err, storeerr.ErrIO)
	}
	return f.Sync()
}

// Exists reports whether the primary volume already has a catalog for fh,
// the write pipeline's idempotence check (spec §4.3 step 2). It must not
// require decoding anything.
func Exists(vol nodeconfig.Volume, fh ids.FileHash) (bool, error) {
	path := filepath.Join(vol.Path, Dir, fh.Hex())
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w: %w", path, err, storeerr.ErrIO)
	}
}

// Read tries volume 0 first, then 1..7 in order, returning the first
// catalog that parses (spec §4.5's Open Question, resolved as SHOULD).
// Any single surviving replica is authoritative since all 8 are written
// byte-identical.
func Read(volumes [8]nodeconfig.Volume, fh ids.FileHash) ([]ids.SegmentHash, error) {
	var lastErr error
	for _, vol := range volumes {
		path := filepath.Join(vol.Path, Dir, fh.Hex())
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				lastErr = err
				continue
			}
			lastErr = fmt.Errorf("read %s: %w: %w", path, err, storeerr.ErrIO)
			continue
		}
		if len(raw) == 0 || len(raw)%hashSize != 0 {
			lastErr = fmt.Errorf("catalog %s has length %d, not a positive multiple of %d: %w", path, len(raw), hashSize, storeerr.ErrFormatViolation)
			continue
		}
		hashes := make([]ids.SegmentHash, len(raw)/hashSize)
		for i := range hashes {
			copy(hashes[i][:], raw[i*hashSize:(i+1)*hashSize])
		}
		return hashes, nil
	}
	return nil, fmt.Errorf("catalog for %s absent on all volumes: %w (last: %v)", fh, storeerr.ErrNotFound, lastErr)
}
