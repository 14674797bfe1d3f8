// Package codec implements the node's segment codec adapter: the thin,
// pure contract between the write/read pipelines and the on-disk chunk
// format. Encode turns one plaintext segment into an 8-way-splittable
// ciphertext, a content-binding hash, and the layout metadata needed to
// reverse the process; Decode reverses it, tolerating missing chunks up
// to the erasure-coding threshold.
package codec

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"

	"carbonis/internal/storeerr"

	"github.com/klauspost/reedsolomon"
)

const (
	// SegmentSize is the plaintext granularity of encoding (1 MiB).
	SegmentSize = 1 << 20

	// NodeFormat is this node build's sole format byte: ChaCha20-Poly1305
	// sealing keyed by the ECDH shared secret, followed by a 5-data/
	// 3-parity Reed-Solomon split into 8 equal chunks.
	NodeFormat byte = 1

	// DataShards, ParityShards, TotalShards describe NodeFormat's erasure
	// split. MinChunks is the FEC recovery threshold: any MinChunks of
	// the TotalShards chunks (data or parity) suffice to reconstruct.
	DataShards   = 5
	ParityShards = 3
	TotalShards  = DataShards + ParityShards
	MinChunks    = DataShards

	nonceSize = chacha20poly1305.NonceSize // 12
	tagSize   = chacha20poly1305.Overhead  // 16
)

// Layout describes an encoded segment's shape, as returned by Encode and
// consumed verbatim by the chunk header and by Decode.
type Layout struct {
	OutputLen  uint32 // total encoded length (8 * ChunkLen)
	PaddingLen uint32 // zero bytes appended to plaintext before encoding
	ChunkLen   uint32 // OutputLen / 8
}

// Encode seals plaintext under a key derived from the ECDH shared secret
// ss, with pkBytes (the 33-byte authoring public key) as associated
// data, then erasure-codes the result into 8 equal chunks concatenated
// as ciphertext. It never fails on zero-length input.
//
// Encode is a pure function of (ss, pkBytes, plaintext, format): for a
// fixed node private key, ss is itself a deterministic function of the
// authoring public key, so two calls with the same (pk, plaintext,
// format) always produce the same ciphertext and segmentHash.
func Encode(ss, pkBytes, plaintext []byte, format byte) (ciphertext []byte, segmentHash [32]byte, layout Layout, err error) {
	if format != NodeFormat {
		return nil, [32]byte{}, Layout{}, fmt.Errorf("unsupported format %d: %w", format, storeerr.ErrCodecFailure)
	}

	frameOverhead := nonceSize + tagSize
	paddingLen := (DataShards - (len(plaintext)+frameOverhead)%DataShards) % DataShards
	padded := make([]byte, len(plaintext)+paddingLen)
	copy(padded, plaintext)

	key, err := contentKey(ss, format)
	if err != nil {
		return nil, [32]byte{}, Layout{}, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, [32]byte{}, Layout{}, fmt.Errorf("init aead: %w", err)
	}

	nonce := segmentNonce(pkBytes, plaintext, format)
	sealed := aead.Seal(nil, nonce[:], padded, pkBytes)

	frame := make([]byte, nonceSize+len(sealed))
	copy(frame, nonce[:])
	copy(frame[nonceSize:], sealed)

	if len(frame)%DataShards != 0 {
		return nil, [32]byte{}, Layout{}, fmt.Errorf("internal error: frame %d not divisible by %d", len(frame), DataShards)
	}
	shardLen := len(frame) / DataShards

	shards := make([][]byte, TotalShards)
	for i := 0; i < DataShards; i++ {
		shards[i] = frame[i*shardLen : (i+1)*shardLen]
	}
	for i := DataShards; i < TotalShards; i++ {
		shards[i] = make([]byte, shardLen)
	}

	enc, err := reedsolomon.New(DataShards, ParityShards)
	if err != nil {
		return nil, [32]byte{}, Layout{}, fmt.Errorf("init erasure coder: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, [32]byte{}, Layout{}, fmt.Errorf("erasure encode: %w: %w", err, storeerr.ErrCodecFailure)
	}

	ciphertext = make([]byte, 0, TotalShards*shardLen)
	for _, shard := range shards {
		ciphertext = append(ciphertext, shard...)
	}

	layout = Layout{
		OutputLen:  uint32(len(ciphertext)),
		PaddingLen: uint32(paddingLen),
		ChunkLen:   uint32(shardLen),
	}
	segmentHash = hashSegment(pkBytes, ciphertext, format)

	return ciphertext, segmentHash, layout, nil
}

// Decode reverses Encode. shards holds the 8 chunks in index order; a nil
// entry marks a chunk that was missing, had a malformed header, or failed
// header verification on read (treated as absent upstream of this call,
// per the error taxonomy's FormatViolation handling). Decode
// reconstructs missing shards when at least MinChunks are present,
// verifies segmentHash, opens the AEAD seal, and strips paddingLen
// trailing bytes.
func Decode(ss, pkBytes []byte, segmentHash [32]byte, shards [][]byte, paddingLen uint32, format byte) ([]byte, error) {
	if format != NodeFormat {
		return nil, fmt.Errorf("unsupported format %d: %w", format, storeerr.ErrCodecFailure)
	}
	if len(shards) != TotalShards {
		return nil, fmt.Errorf("expected %d shards, got %d: %w", TotalShards, len(shards), storeerr.ErrFormatViolation)
	}

	present := 0
	for _, s := range shards {
		if s != nil {
			present++
		}
	}
	if present < MinChunks {
		return nil, fmt.Errorf("only %d of %d chunks present, need %d: %w", present, TotalShards, MinChunks, storeerr.ErrCodecFailure)
	}

	enc, err := reedsolomon.New(DataShards, ParityShards)
	if err != nil {
		return nil, fmt.Errorf("init erasure coder: %w", err)
	}
	if err := enc.Reconstruct(shards); err != nil {
		return nil, fmt.Errorf("erasure reconstruct: %w: %w", err, storeerr.ErrCodecFailure)
	}

	ciphertext := make([]byte, 0)
	for _, shard := range shards {
		ciphertext = append(ciphertext, shard...)
	}
	if got := hashSegment(pkBytes, ciphertext, format); got != segmentHash {
		return nil, fmt.Errorf("recomputed segment hash %x != expected %x: %w", got, segmentHash, storeerr.ErrHashMismatch)
	}

	var frame []byte
	for _, shard := range shards[:DataShards] {
		frame = append(frame, shard...)
	}
	if len(frame) < nonceSize+tagSize {
		return nil, fmt.Errorf("reconstructed frame too short: %w", storeerr.ErrFormatViolation)
	}
	nonce := frame[:nonceSize]
	sealed := frame[nonceSize:]

	key, err := contentKey(ss, format)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	padded, err := aead.Open(nil, nonce, sealed, pkBytes)
	if err != nil {
		return nil, fmt.Errorf("aead open: %w: %w", err, storeerr.ErrCodecFailure)
	}

	if int(paddingLen) > len(padded) {
		return nil, fmt.Errorf("padding_len %d exceeds decoded length %d: %w", paddingLen, len(padded), storeerr.ErrFormatViolation)
	}
	return padded[:len(padded)-int(paddingLen)], nil
}

// contentKey derives the 32-byte ChaCha20-Poly1305 key from the shared
// secret, domain-separated by format so a future format never collides
// keys with NodeFormat.
func contentKey(ss []byte, format byte) ([32]byte, error) {
	r := hkdf.New(sha256.New, ss, nil, []byte{'c', 'a', 'r', 'b', 'o', 'n', 'i', 's', '-', 'c', 'o', 'n', 't', 'e', 'n', 't', format})
	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return [32]byte{}, fmt.Errorf("derive content key: %w", err)
	}
	return key, nil
}

// segmentNonce derives the segment's AEAD nonce deterministically from
// the unpadded plaintext, so Encode stays a pure function while still
// giving distinct plaintexts distinct nonces under the same per-file key.
func segmentNonce(pkBytes, plaintext []byte, format byte) [nonceSize]byte {
	h := blake3.Sum256(append(append(append([]byte{}, pkBytes...), plaintext...), format))
	var nonce [nonceSize]byte
	copy(nonce[:], h[:nonceSize])
	return nonce
}

func hashSegment(pkBytes, ciphertext []byte, format byte) [32]byte {
	buf := make([]byte, 0, len(pkBytes)+len(ciphertext)+1)
	buf = append(buf, pkBytes...)
	buf = append(buf, ciphertext...)
	buf = append(buf, format)
	return blake3.Sum256(buf)
}
