package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
)

// stagedRecord holds one fully re-encrypted record before commit.
type stagedRecord struct {
	record *models.FileRecord
	oldRef string
}

// Rotate re-encrypts every record under the new passphrase with fresh
// per-record salts. The work is staged: every payload is decrypted and
// re-encrypted into new blobs before the index is touched, so any failure
// leaves the vault readable under the old passphrase. Returns the number
// of rotated records.
func (s *Service) Rotate(ctx context.Context, owner, oldPassphrase, newPassphrase string) (int, error) {
	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load index: %w", err)
	}

	logger := s.logger
	if l := events.FromContext(ctx); l != nil {
		logger = l
	}
	logger.WithFields(map[string]interface{}{
		"owner": owner,
		"files": idx.Count(),
	}).Info("Starting key rotation")

	staged := make([]stagedRecord, 0, idx.Count())
	abort := func(cause *models.RotationError) (int, error) {
		for _, st := range staged {
			_ = s.blobs.Delete(st.record.Payload.Ref)
		}
		return 0, cause
	}

	for _, record := range idx.Records {
		if err := ctx.Err(); err != nil {
			return abort(&models.RotationError{Err: err})
		}

		rotated, err := s.rotateRecord(record, oldPassphrase, newPassphrase)
		if err != nil {
			return abort(&models.RotationError{
				RecordID: record.ID,
				Name:     record.Name,
				Err:      err,
			})
		}

		staged = append(staged, stagedRecord{record: rotated, oldRef: record.Payload.Ref})
	}

	// Commit: swap all records in one index save, then drop the old blobs.
	for _, st := range staged {
		idx.Upsert(st.record)
	}
	if err := s.index.Save(owner, idx); err != nil {
		return abort(&models.RotationError{Err: fmt.Errorf("commit index: %w", err)})
	}

	for _, st := range staged {
		if err := s.blobs.Delete(st.oldRef); err != nil {
			s.logger.WithError(err).WithField("ref", st.oldRef).
				Warn("Stale payload left behind after rotation")
		}
	}

	logger.WithFields(map[string]interface{}{
		"owner": owner,
		"files": len(staged),
	}).Info("Key rotation complete")

	return len(staged), nil
}

// rotateRecord decrypts one payload with the old passphrase and writes a
// re-encrypted copy under a new ref, salt, and nonce. The returned record
// is a clone; the caller's index is not modified.
func (s *Service) rotateRecord(record *models.FileRecord, oldPassphrase, newPassphrase string) (*models.FileRecord, error) {
	ciphertext, err := s.blobs.Read(record.Payload.Ref)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	oldKey := s.crypto.DeriveKey(oldPassphrase, record.Salt)
	plaintext, err := s.crypto.Decrypt(ciphertext, record.IV, oldKey)
	if err != nil {
		return nil, err
	}

	if actual := s.crypto.Checksum(plaintext); actual != record.Checksum {
		return nil, &models.IntegrityError{
			RecordID: record.ID,
			Name:     record.Name,
			Expected: record.Checksum,
			Actual:   actual,
		}
	}

	newSalt, err := s.crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	newKey := s.crypto.DeriveKey(newPassphrase, newSalt)
	newCiphertext, newIV, err := s.crypto.Encrypt(plaintext, newKey)
	if err != nil {
		return nil, fmt.Errorf("re-encrypt: %w", err)
	}

	rotated := record.Clone()
	rotated.Payload = models.Payload{Ref: uuid.New().String()}
	rotated.Salt = newSalt
	rotated.IV = newIV

	if err := s.blobs.Write(rotated.Payload.Ref, newCiphertext); err != nil {
		return nil, fmt.Errorf("stage payload: %w", err)
	}

	return rotated, nil
}
