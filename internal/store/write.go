package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"carbonis/internal/catalog"
	"carbonis/internal/codec"
	"carbonis/internal/ids"
	"carbonis/internal/logging"
	"carbonis/internal/segment"
	"carbonis/internal/storeerr"
)

// WriteFile implements spec §4.3: compute the file hash, short-circuit if
// already written, split plaintext into 1 MiB segments (plus the
// mandatory trailing segment), encode and disperse each segment across
// all 8 volumes in parallel, then replicate the resulting catalog.
//
// A repeat write of the same (pk, plaintext) pair returns the same
// FileHash wrapped in storeerr.ErrAlreadyExists rather than rewriting
// anything — convergent encryption means there is nothing new to write.
func (s *Store) WriteFile(ctx context.Context, pk ids.PublicKey, plaintext []byte) (ids.FileHash, error) {
	log := logging.Log()

	fh, err := ids.ComputeFileHash(pk, plaintext)
	if err != nil {
		return ids.FileHash{}, err
	}

	exists, err := catalog.Exists(s.cfg.Volumes[0], fh)
	if err != nil {
		return ids.FileHash{}, err
	}
	if exists {
		log.WithField("file_hash", fh).Debug("write: already present, skipping")
		return fh, fmt.Errorf("file %s: %w", fh, storeerr.ErrAlreadyExists)
	}

	segments := splitSegments(plaintext)
	ss := ids.SharedSecret(s.cfg.PrivateKey, pk)
	pkBytes := pk.Bytes()

	segmentHashes := make([]ids.SegmentHash, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			h, err := s.encodeAndDisperse(gctx, ss, pkBytes, seg)
			if err != nil {
				return fmt.Errorf("segment %d: %w", i, err)
			}
			segmentHashes[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ids.FileHash{}, err
	}

	if err := catalog.Write(ctx, s.cfg.Volumes, fh, segmentHashes); err != nil {
		return ids.FileHash{}, err
	}

	log.WithFields(map[string]interface{}{
		"file_hash": fh,
		"segments":  len(segments),
		"bytes":     len(plaintext),
	}).Info("write: complete")
	return fh, nil
}

// splitSegments divides data into codec.SegmentSize pieces, always
// ending with a segment shorter than SegmentSize — including an explicit
// empty one when len(data) is zero or an exact multiple of SegmentSize
// (spec.md Invariant 1: every file has at least one segment, and the
// segment count is otherwise exactly ceil(len/SegmentSize)).
func splitSegments(data []byte) [][]byte {
	var segments [][]byte
	for len(data) > 0 {
		n := len(data)
		if n > codec.SegmentSize {
			n = codec.SegmentSize
		}
		segments = append(segments, data[:n])
		data = data[n:]
	}
	if len(segments) == 0 || len(segments[len(segments)-1]) == codec.SegmentSize {
		segments = append(segments, []byte{})
	}
	return segments
}

// encodeAndDisperse encodes one plaintext segment and writes its 8
// resulting chunks to their respective volumes in parallel.
func (s *Store) encodeAndDisperse(ctx context.Context, ss [32]byte, pkBytes [33]byte, plaintext []byte) (ids.SegmentHash, error) {
	ciphertext, segHash, layout, err := codec.Encode(ss[:], pkBytes[:], plaintext, codec.NodeFormat)
	if err != nil {
		return ids.SegmentHash{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for v := 0; v < codec.TotalShards; v++ {
		v := v
		g.Go(func() error {
			return s.writeChunk(gctx, v, ss, pkBytes, segHash, layout, ciphertext)
		})
	}
	if err := g.Wait(); err != nil {
		return ids.SegmentHash{}, err
	}
	return ids.SegmentHash(segHash), nil
}

// writeChunk writes volume v's shard of one encoded segment, under a
// fixed-length authenticated header. The file is created exclusively: an
// already-present chunk file fails the write with ErrAlreadyExists, and
// nothing is overwritten.
func (s *Store) writeChunk(ctx context.Context, v int, ss [32]byte, pkBytes [33]byte, segHash [32]byte, layout codec.Layout, ciphertext []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chunk := ciphertext[uint32(v)*layout.ChunkLen : (uint32(v)+1)*layout.ChunkLen]
	hdr := segment.New(ss[:], pkBytes, segHash, codec.NodeFormat, byte(v), layout.OutputLen, layout.PaddingLen, chunk)

	dir := filepath.Join(s.cfg.Volumes[v].Path, chunksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w: %w", dir, err, storeerr.ErrIO)
	}
	path := filepath.Join(dir, segment.FileName(segHash, codec.NodeFormat))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("chunk %s: %w", path, storeerr.ErrAlreadyExists)
		}
		return fmt.Errorf("create %s: %w: %w", path, err, storeerr.ErrIO)
	}
	defer f.Close()

	if _, err := f.Write(hdr.Bytes()); err != nil {
		return fmt.Errorf("write header %s: %w: %w", path, err, storeerr.ErrIO)
	}
	if _, err := f.Write(chunk); err != nil {
		return fmt.Errorf("write chunk %s: %w: %w", path, err, storeerr.ErrIO)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w: %w", path, err, storeerr.ErrIO)
	}
	return nil
}
