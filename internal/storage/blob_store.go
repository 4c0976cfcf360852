package storage

import (
	"errors"
)

// BlobStore holds encrypted payload bytes, addressed by opaque refs. The
// vault index owns the metadata; the blob store owns nothing but bytes.
type BlobStore interface {
	// Write saves ciphertext under a ref.
	Write(ref string, data []byte) error

	// Read retrieves ciphertext by ref. Returns ErrBlobNotFound if absent.
	Read(ref string) ([]byte, error)

	// Delete removes a blob. Deleting an absent blob is not an error.
	Delete(ref string) error

	// Exists checks whether a blob is present.
	Exists(ref string) (bool, error)

	// List returns all refs in the store.
	List() ([]string, error)
}

// ErrBlobNotFound means a ref resolves to nothing. The vault layer turns
// this into a per-record MissingPayloadError during scans.
var ErrBlobNotFound = errors.New("blob not found")
