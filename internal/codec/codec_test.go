package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ss := make([]byte, 32)
	for i := range ss {
		ss[i] = byte(i)
	}
	pkBytes := make([]byte, 33)
	for i := range pkBytes {
		pkBytes[i] = byte(i + 1)
	}
	plaintext := []byte("a segment's worth of plaintext, not aligned to 5 bytes")

	ciphertext, segHash, layout, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)
	require.Equal(t, int(layout.OutputLen), len(ciphertext))
	require.Equal(t, layout.OutputLen/TotalShards, layout.ChunkLen)

	shards := splitShards(ciphertext, layout.ChunkLen)
	got, err := Decode(ss, pkBytes, segHash, shards, layout.PaddingLen, NodeFormat)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestEncodeIsDeterministic(t *testing.T) {
	ss := []byte("shared secret of some length...")
	pkBytes := make([]byte, 33)
	plaintext := []byte("same input, twice")

	c1, h1, l1, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)
	c2, h2, l2, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)

	require.Equal(t, c1, c2)
	require.Equal(t, h1, h2)
	require.Equal(t, l1, l2)
}

func TestDecodeToleratesMissingShards(t *testing.T) {
	ss := []byte("shared secret of some length...")
	pkBytes := make([]byte, 33)
	plaintext := []byte("tolerate losing up to three of eight shards")

	ciphertext, segHash, layout, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)

	shards := splitShards(ciphertext, layout.ChunkLen)
	for _, missing := range [ParityShards]int{5, 6, 7} {
		shards[missing] = nil
	}

	got, err := Decode(ss, pkBytes, segHash, shards, layout.PaddingLen, NodeFormat)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecodeFailsBelowThreshold(t *testing.T) {
	ss := []byte("shared secret of some length...")
	pkBytes := make([]byte, 33)
	plaintext := []byte("losing four of eight shards is one too many")

	ciphertext, segHash, layout, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)

	shards := splitShards(ciphertext, layout.ChunkLen)
	for _, missing := range [4]int{4, 5, 6, 7} {
		shards[missing] = nil
	}

	_, err = Decode(ss, pkBytes, segHash, shards, layout.PaddingLen, NodeFormat)
	require.Error(t, err)
}

func TestDecodeRejectsTamperedCiphertext(t *testing.T) {
	ss := []byte("shared secret of some length...")
	pkBytes := make([]byte, 33)
	plaintext := []byte("tamper-evidence via segment hash")

	ciphertext, segHash, layout, err := Encode(ss, pkBytes, plaintext, NodeFormat)
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	shards := splitShards(ciphertext, layout.ChunkLen)

	_, err = Decode(ss, pkBytes, segHash, shards, layout.PaddingLen, NodeFormat)
	require.Error(t, err)
}

func splitShards(ciphertext []byte, chunkLen uint32) [][]byte {
	shards := make([][]byte, TotalShards)
	for i := range shards {
		shards[i] = ciphertext[uint32(i)*chunkLen : (uint32(i)+1)*chunkLen]
	}
	return shards
}
