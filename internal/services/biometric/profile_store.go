package biometric

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cybervault/cybervault/internal/models"
)

// ErrProfileNotFound means no biometric profile exists for the owner.
var ErrProfileNotFound = errors.New("biometric profile not found")

// ProfileStore persists biometric profiles.
type ProfileStore interface {
	Load(owner string) (*models.BiometricProfile, error)
	Save(profile *models.BiometricProfile) error
	Delete(owner string) error
}

// FileProfileStore keeps one JSON file per owner under a credentials
// directory. Templates are derived measurements, not secrets, but the files
// are still written owner-only.
type FileProfileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileProfileStore creates a file-backed profile store.
func NewFileProfileStore(baseDir string) (*FileProfileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create credentials directory: %w", err)
	}
	return &FileProfileStore{baseDir: baseDir}, nil
}

func (s *FileProfileStore) Load(owner string) (*models.BiometricProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.profilePath(owner))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var profile models.BiometricProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return &profile, nil
}

func (s *FileProfileStore) Save(profile *models.BiometricProfile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	path := s.profilePath(profile.Owner)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename profile: %w", err)
	}

	return nil
}

func (s *FileProfileStore) Delete(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.profilePath(owner)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *FileProfileStore) profilePath(owner string) string {
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
	return filepath.Join(s.baseDir, safe+".profile.json")
}

// MockProfileStore is an in-memory ProfileStore for tests.
type MockProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.BiometricProfile

	// FailSave makes Save return this error when set.
	FailSave error
}

// NewMockProfileStore creates an empty mock profile store.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{profiles: make(map[string]*models.BiometricProfile)}
}

func (m *MockProfileStore) Load(owner string) (*models.BiometricProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, ok := m.profiles[owner]
	if !ok {
		return nil, ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}

func (m *MockProfileStore) Save(profile *models.BiometricProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		return m.FailSave
	}

	clone := *profile
	m.profiles[profile.Owner] = &clone
	return nil
}

func (m *MockProfileStore) Delete(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, owner)
	return nil
}
