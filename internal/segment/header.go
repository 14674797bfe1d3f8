// Package segment implements the fixed-length header that precedes every
// chunk file on disk, and the filename rule that locates it.
package segment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"carbonis/internal/storeerr"
)

const (
	pubKeyLen    = 33
	signatureLen = 64
	hashLen      = 32

	// HdrLen is the fixed header length preceding every chunk's payload.
	HdrLen = pubKeyLen + signatureLen + hashLen + 1 + 1 + 4 + 4
)

// Header is the per-chunk header described in spec §4.2: an
// authentication tag over the header and chunk, keyed by the shared
// secret, plus enough metadata for the read pipeline to decode without
// consulting anything but the chunk files themselves.
type Header struct {
	PubKey      [pubKeyLen]byte
	Signature   [signatureLen]byte
	Hash        [hashLen]byte
	Format      byte
	ChunkIndex  byte
	EncodedLen  uint32
	PaddingLen  uint32
}

// New builds a header for one chunk, signing header+chunk under ss (the
// shared secret between the authoring key and the node's key — never PK
// itself).
func New(ss []byte, pubKey [pubKeyLen]byte, hash [hashLen]byte, format, chunkIndex byte, encodedLen, paddingLen uint32, chunk []byte) Header {
	h := Header{
		PubKey:     pubKey,
		Hash:       hash,
		Format:     format,
		ChunkIndex: chunkIndex,
		EncodedLen: encodedLen,
		PaddingLen: paddingLen,
	}
	h.Signature = sign(ss, h.signedFields(), chunk)
	return h
}

// signedFields returns the header bytes other than the signature field
// itself, in on-disk order.
func (h Header) signedFields() []byte {
	buf := make([]byte, 0, HdrLen-signatureLen)
	buf = append(buf, h.PubKey[:]...)
	buf = append(buf, h.Hash[:]...)
	buf = append(buf, h.Format, h.ChunkIndex)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], h.EncodedLen)
	buf = append(buf, lenBuf[:]...)
	binary.BigEndian.PutUint32(lenBuf[:], h.PaddingLen)
	buf = append(buf, lenBuf[:]...)
	return buf
}

// Bytes serializes the header in field order: pubkey, signature, hash,
// format, chunk_index, encoded_len, padding_len.
func (h Header) Bytes() []byte {
	buf := make([]byte, 0, HdrLen)
	buf = append(buf, h.PubKey[:]...)
	buf = append(buf, h.Signature[:]...)
	buf = append(buf, h.signedFields()[pubKeyLen:]...)
	return buf
}

// FileName returns the "<hex(hash)>.c<format>" filename the write
// pipeline creates and the read pipeline looks up, without needing to
// parse any header first.
func FileName(hash [hashLen]byte, format byte) string {
	return fmt.Sprintf("%x.c%d", hash, format)
}

// Parse decodes a header's fields from raw bytes without verifying its
// signature — the caller doesn't yet know which shared secret to verify
// against until it has read PubKey out of the header and derived SS from
// it. A file whose header fails to parse should be treated as absent by
// the caller (spec §4.2).
func Parse(raw []byte) (Header, error) {
	if len(raw) != HdrLen {
		return Header{}, fmt.Errorf("header length %d != %d: %w", len(raw), HdrLen, storeerr.ErrFormatViolation)
	}
	var h Header
	off := 0
	copy(h.PubKey[:], raw[off:off+pubKeyLen])
	off += pubKeyLen
	copy(h.Signature[:], raw[off:off+signatureLen])
	off += signatureLen
	copy(h.Hash[:], raw[off:off+hashLen])
	off += hashLen
	h.Format = raw[off]
	off++
	h.ChunkIndex = raw[off]
	off++
	h.EncodedLen = binary.BigEndian.Uint32(raw[off : off+4])
	off += 4
	h.PaddingLen = binary.BigEndian.Uint32(raw[off : off+4])
	if h.ChunkIndex > 7 {
		return Header{}, fmt.Errorf("chunk_index %d out of range: %w", h.ChunkIndex, storeerr.ErrFormatViolation)
	}
	return h, nil
}

// Verify checks this header's signature against chunk, under shared
// secret ss. A false result should be treated identically to a parse
// failure: the chunk is absent, not fatal.
func (h Header) Verify(ss []byte, chunk []byte) bool {
	want := sign(ss, h.signedFields(), chunk)
	return hmac.Equal(want[:], h.Signature[:])
}

// sign authenticates signedFields+chunk under ss, expanding the 32-byte
// HMAC-SHA256 output to the header's fixed 64-byte signature field via
// two domain-separated tags.
func sign(ss []byte, signedFields, chunk []byte) [signatureLen]byte {
	var out [signatureLen]byte
	for i, suffix := range [2]byte{0x01, 0x02} {
		mac := hmac.New(sha256.New, ss)
		mac.Write(signedFields)
		mac.Write(chunk)
		mac.Write([]byte{suffix})
		copy(out[i*32:(i+1)*32], mac.Sum(nil))
	}
	return out
}
