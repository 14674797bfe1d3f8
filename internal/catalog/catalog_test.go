package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"carbonis/internal/ids"
	"carbonis/internal/nodeconfig"
	"carbonis/internal/storeerr"
)

func testVolumes(t *testing.T) [8]nodeconfig.Volume {
	t.Helper()
	var vols [8]nodeconfig.Volume
	for i := range vols {
		vols[i] = nodeconfig.Volume{Path: t.TempDir()}
	}
	return vols
}

func testFileHash(b byte) ids.FileHash {
	var fh ids.FileHash
	for i := range fh {
		fh[i] = b
	}
	return fh
}

func testSegmentHashes(n int) []ids.SegmentHash {
	hashes := make([]ids.SegmentHash, n)
	for i := range hashes {
		for j := range hashes[i] {
			hashes[i][j] = byte(i*7 + j)
		}
	}
	return hashes
}

func TestWriteReadRoundTrip(t *testing.T) {
	vols := testVolumes(t)
	fh := testFileHash(0x42)
	hashes := testSegmentHashes(3)

	require.NoError(t, Write(context.Background(), vols, fh, hashes))

	got, err := Read(vols, fh)
	require.NoError(t, err)
	require.Equal(t, hashes, got)
}

func TestReplicaEquality(t *testing.T) {
	vols := testVolumes(t)
	fh := testFileHash(0x7)
	hashes := testSegmentHashes(5)

	require.NoError(t, Write(context.Background(), vols, fh, hashes))

	var want []byte
	for i, vol := range vols {
		raw, err := os.ReadFile(filepath.Join(vol.Path, Dir, fh.Hex()))
		require.NoError(t, err)
		if i == 0 {
			want = raw
			continue
		}
		require.Equal(t, want, raw)
	}
}

func TestWriteTwiceAlreadyExists(t *testing.T) {
	vols := testVolumes(t)
	fh := testFileHash(0x9)
	hashes := testSegmentHashes(1)

	require.NoError(t, Write(context.Background(), vols, fh, hashes))
	err := Write(context.Background(), vols, fh, hashes)
	require.ErrorIs(t, err, storeerr.ErrAlreadyExists)
}

func TestExists(t *testing.T) {
	vols := testVolumes(t)
	fh := testFileHash(0x1)

	exists, err := Exists(vols[0], fh)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, Write(context.Background(), vols, fh, testSegmentHashes(1)))

	exists, err = Exists(vols[0], fh)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestReadFallsBackAcrossVolumes(t *testing.T) {
	vols := testVolumes(t)
	fh := testFileHash(0x2)
	hashes := testSegmentHashes(2)
	require.NoError(t, Write(context.Background(), vols, fh, hashes))

	for i := 0; i < 7; i++ {
		require.NoError(t, os.Remove(filepath.Join(vols[i].Path, Dir, fh.Hex())))
	}

	got, err := Read(vols, fh)
	require.NoError(t, err)
	require.Equal(t, hashes, got)
}

func TestReadNotFound(t *testing.T) {
	vols := testVolumes(t)
	_, err := Read(vols, testFileHash(0xff))
	require.ErrorIs(t, err, storeerr.ErrNotFound)
}
