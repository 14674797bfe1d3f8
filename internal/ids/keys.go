// Package ids wraps the secp256k1 key types and content-address hashes
// used throughout the node: the authoring public key (PK), the node's
// private key (SK), the ECDH shared secret derived from the two, and the
// file/segment hashes that address stored content.
package ids

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"lukechampine.com/blake3"
)

// PublicKey is the authoring key supplied per write. Its compressed
// 33-byte serialization is used as codec associated data; its x-only
// 32-byte serialization keys the file hash.
type PublicKey struct {
	inner *secp256k1.PublicKey
}

// ParsePublicKeyHex parses a hex-encoded compressed secp256k1 public key,
// the form the HTTP frontend receives in the POST /file/:pk path.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key hex: %w", err)
	}
	return ParsePublicKeyBytes(raw)
}

// ParsePublicKeyBytes parses a compressed or uncompressed serialized
// secp256k1 public key.
func ParsePublicKeyBytes(raw []byte) (PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("parse public key: %w", err)
	}
	return PublicKey{inner: pk}, nil
}

// Bytes returns the 33-byte compressed serialization, the codec's
// associated-data input.
func (p PublicKey) Bytes() [33]byte {
	var out [33]byte
	copy(out[:], p.inner.SerializeCompressed())
	return out
}

// XOnly returns the 32-byte x-coordinate-only serialization, the keying
// input to the file hash.
func (p PublicKey) XOnly() [32]byte {
	var out [32]byte
	copy(out[:], p.inner.SerializeCompressed()[1:])
	return out
}

// PrivateKey is the node's long-term secp256k1 scalar, generated on
// first run and persisted in config.
type PrivateKey struct {
	inner *secp256k1.PrivateKey
}

// GeneratePrivateKey creates a fresh node key.
func GeneratePrivateKey() (PrivateKey, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return PrivateKey{}, fmt.Errorf("generate private key: %w", err)
	}
	return PrivateKey{inner: sk}, nil
}

// PrivateKeyFromBytes parses a persisted 32-byte scalar.
func PrivateKeyFromBytes(raw []byte) (PrivateKey, error) {
	if len(raw) != 32 {
		return PrivateKey{}, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	return PrivateKey{inner: secp256k1.PrivKeyFromBytes(raw)}, nil
}

// Bytes returns the 32-byte scalar for persistence.
func (s PrivateKey) Bytes() [32]byte {
	var out [32]byte
	copy(out[:], s.inner.Serialize())
	return out
}

// PubKey returns the public key corresponding to this private key.
func (s PrivateKey) PubKey() PublicKey {
	return PublicKey{inner: s.inner.PubKey()}
}

// SharedSecret derives the 32-byte ECDH shared secret SS = ECDH(pk, sk).
// Deterministic in (pk, sk): hashing the shared point's affine
// x-coordinate with blake3 flattens it to a uniformly-distributed key
// while keeping the derivation a pure function of its two inputs.
func SharedSecret(sk PrivateKey, pk PublicKey) [32]byte {
	var point, shared secp256k1.JacobianPoint
	pk.inner.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(&sk.inner.Key, &point, &shared)
	shared.ToAffine()
	x := shared.X.Bytes()
	return blake3.Sum256(x[:])
}

// FileHash is the 32-byte content address of a plaintext blob, keyed by
// the authoring public key's x-only serialization.
type FileHash [32]byte

// ComputeFileHash computes FH = keyed_hash(x_only(pk), plaintext).
func ComputeFileHash(pk PublicKey, plaintext []byte) (FileHash, error) {
	xOnly := pk.XOnly()
	h, err := blake3.New(32, xOnly[:])
	if err != nil {
		return FileHash{}, fmt.Errorf("init keyed hash: %w", err)
	}
	if _, err := h.Write(plaintext); err != nil {
		return FileHash{}, fmt.Errorf("hash plaintext: %w", err)
	}
	var out FileHash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Hex returns the lowercase hex encoding used as the catalog filename.
func (h FileHash) Hex() string { return hex.EncodeToString(h[:]) }

func (h FileHash) String() string { return h.Hex() }

// ParseFileHashHex parses a hex-encoded file hash, the form the HTTP
// frontend receives in GET /file/:hash.
func ParseFileHashHex(s string) (FileHash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return FileHash{}, fmt.Errorf("decode file hash hex: %w", err)
	}
	if len(raw) != 32 {
		return FileHash{}, fmt.Errorf("file hash must be 32 bytes, got %d", len(raw))
	}
	var out FileHash
	copy(out[:], raw)
	return out, nil
}

// SegmentHash is the 32-byte content address of one encoded segment (BH),
// binding ciphertext, format, and codec parameters.
type SegmentHash [32]byte

func (h SegmentHash) Hex() string { return hex.EncodeToString(h[:]) }

func (h SegmentHash) String() string { return h.Hex() }
