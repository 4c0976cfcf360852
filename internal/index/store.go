package index

import (
	"errors"

	"github.com/cybervault/cybervault/internal/models"
)

// Store manages durable vault index persistence. Every mutation is
// write-through: it hits durable storage before returning. File counts are
// small, so durability wins over throughput.
type Store interface {
	// Load retrieves the index for an owner.
	Load(owner string) (*models.VaultIndex, error)

	// Save persists the whole index for an owner.
	Save(owner string, idx *models.VaultIndex) error

	// Upsert inserts or replaces one record and persists immediately.
	Upsert(owner string, record *models.FileRecord) error

	// Remove deletes one record and persists immediately.
	Remove(owner string, id string) error

	// List returns records matching the filter, in index order. A nil
	// filter matches everything.
	List(owner string, filter func(*models.FileRecord) bool) ([]*models.FileRecord, error)

	// Reset removes all state for an owner.
	Reset(owner string) error

	// Close releases resources.
	Close() error
}

// Errors
var (
	ErrIndexNotFound = errors.New("vault index not found")
	ErrIndexCorrupt  = errors.New("vault index is corrupt")
)

// CurrentSchemaVersion for migrations.
const CurrentSchemaVersion = 1
