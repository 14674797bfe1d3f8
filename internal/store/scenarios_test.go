package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"carbonis/internal/catalog"
	"carbonis/internal/storeerr"
)

// TestScenarioHelloWorld is S1: a fresh store, a tiny plaintext, a
// straight write then read.
func TestScenarioHelloWorld(t *testing.T) {
	st := New(newTestConfig(t))
	pk := newTestPK(t)

	fh, err := st.WriteFile(context.Background(), pk, []byte("hello"))
	require.NoError(t, err)

	got, err := st.ReadFile(context.Background(), fh)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

// TestScenarioExactSegmentBoundary is S2: writing exactly SEGMENT_SIZE
// bytes produces 2 segments, 16 chunk files, 8 catalog replicas, and
// distinct segment hashes for the two segments.
func TestScenarioExactSegmentBoundary(t *testing.T) {
	cfg := newTestConfig(t)
	st := New(cfg)
	pk := newTestPK(t)
	plaintext := make([]byte, 1<<20)

	fh, err := st.WriteFile(context.Background(), pk, plaintext)
	require.NoError(t, err)

	hashes, err := catalog.Read(cfg.Volumes, fh)
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.NotEqual(t, hashes[0], hashes[1])

	chunkFiles := 0
	for _, vol := range cfg.Volumes {
		entries, err := os.ReadDir(filepath.Join(vol.Path, chunksDir))
		require.NoError(t, err)
		chunkFiles += len(entries)
	}
	require.Equal(t, 16, chunkFiles)

	catalogFiles := 0
	for _, vol := range cfg.Volumes {
		entries, err := os.ReadDir(filepath.Join(vol.Path, catalog.Dir))
		require.NoError(t, err)
		catalogFiles += len(entries)
	}
	require.Equal(t, 8, catalogFiles)
}

// TestScenarioRepeatWriteAlreadyExists is S3: repeating S1's write
// fails with AlreadyExists and creates nothing new.
func TestScenarioRepeatWriteAlreadyExists(t *testing.T) {
	cfg := newTestConfig(t)
	st := New(cfg)
	pk := newTestPK(t)

	fh1, err := st.WriteFile(context.Background(), pk, []byte("hello"))
	require.NoError(t, err)

	totalBefore := 0
	for _, vol := range cfg.Volumes {
		totalBefore += countFiles(t, vol.Path)
	}

	fh2, err := st.WriteFile(context.Background(), pk, []byte("hello"))
	require.ErrorIs(t, err, storeerr.ErrAlreadyExists)
	require.Equal(t, fh1, fh2)

	totalAfter := 0
	for _, vol := range cfg.Volumes {
		totalAfter += countFiles(t, vol.Path)
	}
	require.Equal(t, totalBefore, totalAfter)
}
