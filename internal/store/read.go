package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"carbonis/internal/catalog"
	"carbonis/internal/codec"
	"carbonis/internal/ids"
	"carbonis/internal/logging"
	"carbonis/internal/segment"
	"carbonis/internal/storeerr"
)

// ReadFile implements spec §4.4: read the catalog for fh, then gather
// and decode every segment in parallel, concatenating the results in
// catalog order.
func (s *Store) ReadFile(ctx context.Context, fh ids.FileHash) ([]byte, error) {
	segmentHashes, err := catalog.Read(s.cfg.Volumes, fh)
	if err != nil {
		return nil, err
	}

	plaintexts := make([][]byte, len(segmentHashes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, bh := range segmentHashes {
		i, bh := i, bh
		g.Go(func() error {
			p, err := s.readSegment(gctx, bh)
			if err != nil {
				return fmt.Errorf("segment %d (%s): %w", i, bh, err)
			}
			plaintexts[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, 0)
	for _, p := range plaintexts {
		out = append(out, p...)
	}

	logging.Log().WithFields(map[string]interface{}{
		"file_hash": fh,
		"segments":  len(segmentHashes),
		"bytes":     len(out),
	}).Info("read: complete")
	return out, nil
}

// readSegment gathers one segment's 8 chunks from their respective
// volumes, reconstructs via Reed-Solomon where some are missing, and
// decodes the result.
func (s *Store) readSegment(ctx context.Context, bh ids.SegmentHash) ([]byte, error) {
	shards := make([][]byte, codec.TotalShards)
	var mu chunkMeta

	g, gctx := errgroup.WithContext(ctx)
	for v := 0; v < codec.TotalShards; v++ {
		v := v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunk, hdr, ok := s.readChunk(v, bh)
			if !ok {
				return nil
			}
			shards[v] = chunk
			mu.record(hdr)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hdr, ok := mu.best()
	if !ok {
		return nil, fmt.Errorf("segment %s: no chunk with a verifiable header survived: %w", bh, storeerr.ErrNotFound)
	}
	pk, err := ids.ParsePublicKeyBytes(hdr.PubKey[:])
	if err != nil {
		return nil, fmt.Errorf("segment %s: %w", bh, err)
	}
	pkBytes := pk.Bytes()
	ss := ids.SharedSecret(s.cfg.PrivateKey, pk)

	return codec.Decode(ss[:], pkBytes[:], [32]byte(bh), shards, hdr.PaddingLen, hdr.Format)
}

// readChunk loads and header-verifies volume v's chunk for segment bh.
// A missing file, a malformed header, or a failed signature check are
// all treated identically: the chunk is absent, not fatal (spec §4.2).
func (s *Store) readChunk(v int, bh ids.SegmentHash) ([]byte, segment.Header, bool) {
	path := filepath.Join(s.cfg.Volumes[v].Path, chunksDir, segment.FileName([32]byte(bh), codec.NodeFormat))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, segment.Header{}, false
	}
	if len(raw) <= segment.HdrLen {
		return nil, segment.Header{}, false
	}
	hdr, err := segment.Parse(raw[:segment.HdrLen])
	if err != nil {
		return nil, segment.Header{}, false
	}
	chunk := raw[segment.HdrLen:]

	pk, err := ids.ParsePublicKeyBytes(hdr.PubKey[:])
	if err != nil {
		return nil, segment.Header{}, false
	}
	ss := ids.SharedSecret(s.cfg.PrivateKey, pk)
	if !hdr.Verify(ss[:], chunk) {
		return nil, segment.Header{}, false
	}
	return chunk, hdr, true
}

// chunkMeta picks one verified header to source this segment's shared
// layout metadata (encoded_len/padding_len/format/pubkey), which is
// identical across all 8 volumes' copies by construction (spec §4.2
// Invariant 3). Any single survivor is authoritative.
type chunkMeta struct {
	mu    sync.Mutex
	hdr   segment.Header
	found bool
}

func (m *chunkMeta) record(hdr segment.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.found {
		m.hdr, m.found = hdr, true
	}
}

func (m *chunkMeta) best() (segment.Header, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hdr, m.found
}
