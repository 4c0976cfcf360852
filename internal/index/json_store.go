package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

// JSONStore implements file-based index storage: one JSON file per owner,
// written atomically with a checksum and a backup fallback.
type JSONStore struct {
	baseDir string
	logger  *events.Logger

	mu sync.RWMutex
}

// indexFile wraps the index with store metadata.
type indexFile struct {
	Index         *models.VaultIndex `json:"index"`
	SchemaVersion int                `json:"schema_version"`
	SavedAt       time.Time          `json:"saved_at"`
	Checksum      string             `json:"checksum,omitempty"`
}

// NewJSONStore creates a JSON-based index store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_index_store"),
	}, nil
}

// Load reads the index from its JSON file.
func (s *JSONStore) Load(owner string) (*models.VaultIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLocked(owner)
}

func (s *JSONStore) loadLocked(owner string) (*models.VaultIndex, error) {
	path := s.indexPath(owner)

	s.logger.WithFields(map[string]interface{}{
		"owner": owner,
		"path":  path,
	}).Debug("Loading index")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrIndexNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}

	var wrapper indexFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		if idx, err := s.loadBackup(owner); err == nil {
			s.logger.Warn("Loaded index from backup due to corruption")
			return idx, nil
		}
		return nil, ErrIndexCorrupt
	}

	if wrapper.Checksum != "" {
		if computeChecksum(wrapper) != wrapper.Checksum {
			s.logger.WithField("owner", owner).Error("Index checksum mismatch")
			if idx, err := s.loadBackup(owner); err == nil {
				return idx, nil
			}
			return nil, ErrIndexCorrupt
		}
	}

	if wrapper.SchemaVersion != CurrentSchemaVersion {
		s.logger.WithField("version", wrapper.SchemaVersion).Warn("Index schema version mismatch")
	}

	if wrapper.Index == nil {
		return nil, ErrIndexCorrupt
	}

	return wrapper.Index, nil
}

// Save writes the index atomically: temp file, fsync, rename, keeping the
// previous version as a backup.
func (s *JSONStore) Save(owner string, idx *models.VaultIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(owner, idx)
}

func (s *JSONStore) saveLocked(owner string, idx *models.VaultIndex) error {
	path := s.indexPath(owner)

	s.logger.WithFields(map[string]interface{}{
		"owner":   owner,
		"records": idx.Count(),
	}).Debug("Saving index")

	wrapper := indexFile{
		Index:         idx,
		SchemaVersion: CurrentSchemaVersion,
		SavedAt:       time.Now(),
	}
	wrapper.Checksum = computeChecksum(wrapper)

	jsonData, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	// Keep the previous version as a fallback.
	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".backup"); err != nil {
			s.logger.WithError(err).Warn("Failed to create backup")
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, jsonData, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	return nil
}

// Upsert inserts or replaces one record and persists immediately.
func (s *JSONStore) Upsert(owner string, record *models.FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadLocked(owner)
	if errors.Is(err, ErrIndexNotFound) {
		idx = models.NewVaultIndex(owner)
	} else if err != nil {
		return err
	}

	idx.Upsert(record)
	return s.saveLocked(owner, idx)
}

// Remove deletes one record and persists immediately.
func (s *JSONStore) Remove(owner string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.loadLocked(owner)
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			return models.ErrRecordNotFound
		}
		return err
	}

	if idx.Remove(id) == nil {
		return models.ErrRecordNotFound
	}

	return s.saveLocked(owner, idx)
}

// List returns records matching the filter, in index order.
func (s *JSONStore) List(owner string, filter func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.loadLocked(owner)
	if err != nil {
		if errors.Is(err, ErrIndexNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return idx.Filter(filter), nil
}

// Reset removes all state for an owner.
func (s *JSONStore) Reset(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.WithField("owner", owner).Info("Resetting index")

	path := s.indexPath(owner)
	_ = os.Remove(path)
	_ = os.Remove(path + ".backup")

	return nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

// Helpers

func (s *JSONStore) indexPath(owner string) string {
	// Owner IDs are emails; keep filenames filesystem-safe.
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, owner)
	return filepath.Join(s.baseDir, safe+".json")
}

func (s *JSONStore) loadBackup(owner string) (*models.VaultIndex, error) {
	data, err := os.ReadFile(s.indexPath(owner) + ".backup")
	if err != nil {
		return nil, err
	}

	var wrapper indexFile
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Index == nil {
		return nil, ErrIndexCorrupt
	}

	return wrapper.Index, nil
}

func computeChecksum(wrapper indexFile) string {
	wrapper.Checksum = ""
	data, _ := json.Marshal(wrapper)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
