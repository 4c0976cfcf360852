package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cybervault/cybervault/internal/events"
)

// LocalStore keeps blobs as files under one flat directory. Writes are
// atomic: temp file, fsync, rename.
type LocalStore struct {
	baseDir     string
	maxBlobSize int64
	logger      *events.Logger
}

// NewLocalStore creates a local blob store.
func NewLocalStore(baseDir string, logger *events.Logger) (*LocalStore, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStore{
		baseDir:     absPath,
		maxBlobSize: 200 * 1024 * 1024,
		logger:      logger.WithField("component", "blob_store"),
	}, nil
}

// SetMaxBlobSize sets the maximum blob size limit.
func (s *LocalStore) SetMaxBlobSize(size int64) {
	s.maxBlobSize = size
}

// Write saves ciphertext atomically under a ref.
func (s *LocalStore) Write(ref string, data []byte) error {
	path, err := s.refPath(ref)
	if err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"ref":  ref,
		"size": len(data),
	}).Debug("Writing blob")

	if int64(len(data)) > s.maxBlobSize {
		return fmt.Errorf("blob too large: %d bytes (max: %d)", len(data), s.maxBlobSize)
	}

	tempPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tempPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Read retrieves ciphertext by ref.
func (s *LocalStore) Read(ref string) ([]byte, error) {
	path, err := s.refPath(ref)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}

	return data, nil
}

// Delete removes a blob. Absent blobs are not an error.
func (s *LocalStore) Delete(ref string) error {
	path, err := s.refPath(ref)
	if err != nil {
		return err
	}

	s.logger.WithField("ref", ref).Debug("Deleting blob")

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

// Exists checks whether a blob is present.
func (s *LocalStore) Exists(ref string) (bool, error) {
	path, err := s.refPath(ref)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}

	return true, nil
}

// List returns all refs in the store.
func (s *LocalStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read blob directory: %w", err)
	}

	var refs []string
	for _, entry := range entries {
		if entry.IsDir() || strings.Contains(entry.Name(), ".tmp.") {
			continue
		}
		refs = append(refs, entry.Name())
	}

	return refs, nil
}

// refPath validates a ref and resolves it inside the base directory. Refs
// are opaque identifiers, never paths; anything that could escape the base
// directory is rejected.
func (s *LocalStore) refPath(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty blob ref")
	}

	if strings.ContainsAny(ref, "/\\") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid blob ref: %s", ref)
	}

	return filepath.Join(s.baseDir, ref), nil
}
