package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/storage"
)

// Service provides the core vault operations: encrypting files in,
// decrypting files out, and keeping the index in step with the blob store.
type Service struct {
	crypto crypto.Provider
	index  index.Store
	blobs  storage.BlobStore
	logger *events.Logger

	maxFileSize int64
}

// NewService creates a vault service.
func NewService(
	provider crypto.Provider,
	indexStore index.Store,
	blobStore storage.BlobStore,
	maxFileSize int64,
	logger *events.Logger,
) *Service {
	return &Service{
		crypto:      provider,
		index:       indexStore,
		blobs:       blobStore,
		maxFileSize: maxFileSize,
		logger:      logger.WithField("service", "vault"),
	}
}

// PutInput describes a file to encrypt into the vault.
type PutInput struct {
	Name string
	Type string
	Data []byte
	Tags []string
}

// Put encrypts a file under a fresh per-record salt and stores it. The
// plaintext checksum is recorded before encryption so later reads can
// detect corruption that slipped past the AEAD layer.
func (s *Service) Put(owner, passphrase string, in PutInput) (*models.FileRecord, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("file name required")
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("empty file: %s", name)
	}
	if s.maxFileSize > 0 && int64(len(in.Data)) > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d)", len(in.Data), s.maxFileSize)
	}

	salt, err := s.crypto.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	key := s.crypto.DeriveKey(passphrase, salt)
	ciphertext, iv, err := s.crypto.Encrypt(in.Data, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt %s: %w", name, err)
	}

	record := &models.FileRecord{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       int64(len(in.Data)),
		Type:       in.Type,
		UploadedAt: time.Now().UTC(),
		Payload:    models.Payload{Ref: uuid.New().String()},
		Salt:       salt,
		IV:         iv,
		Checksum:   s.crypto.Checksum(in.Data),
	}
	record.SetTags(in.Tags)

	if err := s.blobs.Write(record.Payload.Ref, ciphertext); err != nil {
		return nil, fmt.Errorf("store payload for %s: %w", name, err)
	}

	if err := s.index.Upsert(owner, record); err != nil {
		// Roll back the orphaned blob so the store stays in step
		// with the index.
		_ = s.blobs.Delete(record.Payload.Ref)
		return nil, fmt.Errorf("index %s: %w", name, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"id":    record.ID,
		"name":  record.Name,
		"size":  record.Size,
	}).Info("File stored")

	return record, nil
}

// Get decrypts a stored file and verifies its checksum. A missing blob,
// a failed decryption, and a checksum mismatch each surface as distinct
// error types so callers can report them separately.
func (s *Service) Get(owner, passphrase, id string) (*models.FileRecord, []byte, error) {
	record, err := s.getRecord(owner, id)
	if err != nil {
		return nil, nil, err
	}

	ciphertext, err := s.blobs.Read(record.Payload.Ref)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, nil, &models.MissingPayloadError{
				RecordID: record.ID,
				Name:     record.Name,
				Ref:      record.Payload.Ref,
			}
		}
		return nil, nil, fmt.Errorf("read payload for %s: %w", record.Name, err)
	}

	key := s.crypto.DeriveKey(passphrase, record.Salt)
	plaintext, err := s.crypto.Decrypt(ciphertext, record.IV, key)
	if err != nil {
		return nil, nil, &models.DecryptError{
			RecordID: record.ID,
			Name:     record.Name,
			Reason:   "authentication",
			Err:      err,
		}
	}

	if actual := s.crypto.Checksum(plaintext); actual != record.Checksum {
		return nil, nil, &models.IntegrityError{
			RecordID: record.ID,
			Name:     record.Name,
			Expected: record.Checksum,
			Actual:   actual,
		}
	}

	return record, plaintext, nil
}

// Delete removes a file's index entry and payload. The index entry goes
// first; a leftover blob is harmless, a dangling index entry is not.
func (s *Service) Delete(owner, id string) error {
	record, err := s.getRecord(owner, id)
	if err != nil {
		return err
	}

	if err := s.index.Remove(owner, id); err != nil {
		return fmt.Errorf("remove index entry: %w", err)
	}

	if err := s.blobs.Delete(record.Payload.Ref); err != nil {
		s.logger.WithError(err).WithField("ref", record.Payload.Ref).
			Warn("Orphaned payload left behind")
	}

	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"id":    id,
		"name":  record.Name,
	}).Info("File deleted")

	return nil
}

// ListFilter narrows List results. Zero-value fields are ignored.
type ListFilter struct {
	Tag          string
	Type         string
	NameContains string
}

// List returns the owner's records, newest first, optionally filtered.
func (s *Service) List(owner string, filter ListFilter) ([]*models.FileRecord, error) {
	records, err := s.index.List(owner, func(r *models.FileRecord) bool {
		if filter.Tag != "" && !r.HasTag(filter.Tag) {
			return false
		}
		if filter.Type != "" && r.Type != filter.Type {
			return false
		}
		if filter.NameContains != "" &&
			!strings.Contains(strings.ToLower(r.Name), strings.ToLower(filter.NameContains)) {
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// SetTags replaces a record's tags.
func (s *Service) SetTags(owner, id string, tags []string) (*models.FileRecord, error) {
	record, err := s.getRecord(owner, id)
	if err != nil {
		return nil, err
	}

	record.SetTags(tags)
	if err := s.index.Upsert(owner, record); err != nil {
		return nil, fmt.Errorf("update tags: %w", err)
	}
	return record, nil
}

// PurgeOwner removes every record and payload the owner has. Used for demo
// session teardown. Returns the number of files removed.
func (s *Service) PurgeOwner(owner string) (int, error) {
	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load index: %w", err)
	}

	for _, record := range idx.Records {
		if err := s.blobs.Delete(record.Payload.Ref); err != nil {
			s.logger.WithError(err).WithField("ref", record.Payload.Ref).
				Warn("Orphaned payload left behind during purge")
		}
	}

	if err := s.index.Reset(owner); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"files": idx.Count(),
	}).Info("Vault purged")

	return idx.Count(), nil
}

func (s *Service) getRecord(owner, id string) (*models.FileRecord, error) {
	idx, err := s.index.Load(owner)
	if err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			return nil, models.ErrRecordNotFound
		}
		return nil, fmt.Errorf("load index: %w", err)
	}

	record := idx.Get(id)
	if record == nil {
		return nil, models.ErrRecordNotFound
	}
	return record, nil
}
