package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/storage"
)

// Service exports the vault into a single passphrase-protected container
// and merges containers back in. File payloads stay encrypted under their
// per-record keys inside the container; the backup passphrase only guards
// the manifest around them.
type Service struct {
	crypto crypto.Provider
	index  index.Store
	blobs  storage.BlobStore
	logger *events.Logger
}

// NewService creates a backup service.
func NewService(
	provider crypto.Provider,
	indexStore index.Store,
	blobStore storage.BlobStore,
	logger *events.Logger,
) *Service {
	return &Service{
		crypto: provider,
		index:  indexStore,
		blobs:  blobStore,
		logger: logger.WithField("service", "backup"),
	}
}

// Export serializes the owner's entire vault into an encrypted container.
// The backup passphrase may differ from the vault passphrase.
func (s *Service) Export(owner, backupPassphrase string) ([]byte, error) {
	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			idx = models.NewVaultIndex(owner)
		} else {
			return nil, fmt.Errorf("load index: %w", err)
		}
	}

	m := manifest{
		Owner:     owner,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Files:     make([]*models.FileRecord, 0, idx.Count()),
	}

	for _, record := range idx.Records {
		ciphertext, err := s.blobs.Read(record.Payload.Ref)
		if err != nil {
			if errors.Is(err, storage.ErrBlobNotFound) {
				return nil, &models.MissingPayloadError{
					RecordID: record.ID,
					Name:     record.Name,
					Ref:      record.Payload.Ref,
				}
			}
			return nil, fmt.Errorf("read payload for %s: %w", record.Name, err)
		}

		inlined := record.Clone()
		inlined.Payload = models.Payload{Inline: ciphertext}
		m.Files = append(m.Files, inlined)
	}

	plaintext, err := json.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	salt, err := s.crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := s.crypto.DeriveKey(backupPassphrase, salt)
	ciphertext, nonce, err := s.crypto.Encrypt(plaintext, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt manifest: %w", err)
	}

	out, err := encodeContainer(salt, nonce, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("encode container: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"files": len(m.Files),
		"size":  len(out),
	}).Info("Backup exported")

	return out, nil
}

// RestoreResult summarizes a completed restore.
type RestoreResult struct {
	Restored int
	Skipped  int
}

// Restore merges a container into the owner's vault. Records already
// present, matched by name, size, and checksum, are skipped, so restoring
// the same container twice changes nothing. Any failure restores the
// vault to its pre-restore state and returns a RestoreError.
func (s *Service) Restore(owner, backupPassphrase string, data []byte) (*RestoreResult, error) {
	salt, nonce, ciphertext, err := decodeContainer(data)
	if err != nil {
		return nil, &models.RestoreError{Reason: "invalid container", Err: err}
	}

	key := s.crypto.DeriveKey(backupPassphrase, salt)
	plaintext, err := s.crypto.Decrypt(ciphertext, nonce, key)
	if err != nil {
		return nil, &models.RestoreError{Reason: "wrong backup passphrase or corrupted container", Err: err}
	}

	var m manifest
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return nil, &models.RestoreError{Reason: "invalid manifest", Err: err}
	}

	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			idx = models.NewVaultIndex(owner)
		} else {
			return nil, &models.RestoreError{Reason: "load index", Err: err}
		}
	}

	existing := make(map[string]bool, idx.Count())
	ids := make(map[string]bool, idx.Count())
	for _, record := range idx.Records {
		existing[record.NaturalKey()] = true
		ids[record.ID] = true
	}

	// Validate the whole manifest before touching storage.
	var incoming []*models.FileRecord
	result := &RestoreResult{}
	for _, record := range m.Files {
		if !record.Payload.IsInline() {
			return nil, &models.RestoreError{
				Reason: fmt.Sprintf("record %s has no inline payload", record.Name),
			}
		}
		if err := record.Validate(); err != nil {
			return nil, &models.RestoreError{Reason: "invalid record", Err: err}
		}
		if existing[record.NaturalKey()] {
			result.Skipped++
			continue
		}
		incoming = append(incoming, record)
	}

	var written []string
	rollback := func(cause *models.RestoreError) (*RestoreResult, error) {
		for _, ref := range written {
			_ = s.blobs.Delete(ref)
		}
		return nil, cause
	}

	for _, record := range incoming {
		merged := record.Clone()
		if ids[merged.ID] {
			merged.ID = uuid.New().String()
		}
		ids[merged.ID] = true

		ref := uuid.New().String()
		if err := s.blobs.Write(ref, record.Payload.Inline); err != nil {
			return rollback(&models.RestoreError{
				Reason: fmt.Sprintf("store payload for %s", record.Name),
				Err:    err,
			})
		}
		written = append(written, ref)

		merged.Payload = models.Payload{Ref: ref}
		idx.Upsert(merged)
		result.Restored++
	}

	if result.Restored > 0 {
		if err := s.index.Save(owner, idx); err != nil {
			return rollback(&models.RestoreError{Reason: "commit index", Err: err})
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"owner":    owner,
		"restored": result.Restored,
		"skipped":  result.Skipped,
	}).Info("Backup restored")

	return result, nil
}
