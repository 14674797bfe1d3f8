// Package storeerr defines the error taxonomy shared across the node's
// write and read pipelines, so callers can test for a specific failure
// kind with errors.Is regardless of which package or call site wrapped it.
package storeerr

import "errors"

var (
	// ErrConfigInvalid is returned when the config view fails a basic
	// sanity check (wrong volume count, unreadable volume path).
	ErrConfigInvalid = errors.New("config invalid")

	// ErrAlreadyExists is returned when an exclusive-create collides with
	// an existing chunk or catalog file. It is also the node's
	// idempotence signal for a repeat write of the same content.
	ErrAlreadyExists = errors.New("already exists")

	// ErrCodecFailure is returned when the segment codec cannot recover
	// or authenticate a segment's plaintext.
	ErrCodecFailure = errors.New("codec failure")

	// ErrHashMismatch is returned when the hash recomputed over a
	// segment's reassembled chunks disagrees with the segment hash
	// recorded in the catalog.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrIO is returned for filesystem errors other than AlreadyExists.
	ErrIO = errors.New("io error")

	// ErrNotFound is returned when a file's catalog is absent from every
	// volume.
	ErrNotFound = errors.New("not found")

	// ErrFormatViolation is returned when a chunk or catalog file's
	// on-disk shape doesn't match its format contract (wrong length,
	// malformed header). Individual chunks failing this way are treated
	// as absent rather than fatal.
	ErrFormatViolation = errors.New("format violation")
)
