package segment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	ss := []byte("0123456789abcdef0123456789abcdef")
	chunk := []byte("a chunk's worth of ciphertext bytes")
	var pubKey [pubKeyLen]byte
	for i := range pubKey {
		pubKey[i] = byte(i + 1)
	}
	var hash [hashLen]byte
	for i := range hash {
		hash[i] = byte(255 - i)
	}

	hdr := New(ss, pubKey, hash, 1, 3, 1024, 12, chunk)

	raw := hdr.Bytes()
	require.Len(t, raw, HdrLen)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, hdr.PubKey, parsed.PubKey)
	require.Equal(t, hdr.Hash, parsed.Hash)
	require.Equal(t, hdr.Format, parsed.Format)
	require.Equal(t, hdr.ChunkIndex, parsed.ChunkIndex)
	require.Equal(t, hdr.EncodedLen, parsed.EncodedLen)
	require.Equal(t, hdr.PaddingLen, parsed.PaddingLen)
	require.Equal(t, hdr.Signature, parsed.Signature)

	require.True(t, parsed.Verify(ss, chunk))
	require.False(t, parsed.Verify(ss, []byte("tampered chunk bytes")))
	require.False(t, parsed.Verify([]byte("wrong shared secret........"), chunk))
}

func TestHeaderChunkIndexInvariant(t *testing.T) {
	var pubKey [pubKeyLen]byte
	var hash [hashLen]byte
	for idx := byte(0); idx < 8; idx++ {
		hdr := New([]byte("ss"), pubKey, hash, 1, idx, 1, 0, nil)
		raw := hdr.Bytes()
		parsed, err := Parse(raw)
		require.NoError(t, err)
		require.Equal(t, idx, parsed.ChunkIndex)
	}
}

func TestParseRejectsOutOfRangeChunkIndex(t *testing.T) {
	var pubKey [pubKeyLen]byte
	var hash [hashLen]byte
	hdr := New([]byte("ss"), pubKey, hash, 1, 8, 1, 0, nil)
	raw := hdr.Bytes()
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParseRejectsWrongLength(t *testing.T) {
	_, err := Parse(make([]byte, HdrLen-1))
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	var hash [hashLen]byte
	hash[0] = 0xab
	hash[31] = 0xcd
	name := FileName(hash, 1)
	require.Equal(t, len(name), 64+3) // 32 bytes hex + ".c1"
}
