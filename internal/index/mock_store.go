package index

import (
	"sync"

	"github.com/cybervault/cybervault/internal/models"
)

// MockStore provides an in-memory implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	indexes map[string]*models.VaultIndex

	// SaveCount tracks write-through behavior in tests.
	SaveCount int

	// FailSave forces the next Save to fail.
	FailSave error
}

// NewMockStore creates a mock index store.
func NewMockStore() *MockStore {
	return &MockStore{
		indexes: make(map[string]*models.VaultIndex),
	}
}

// Load loads the index for an owner.
func (m *MockStore) Load(owner string) (*models.VaultIndex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if idx, ok := m.indexes[owner]; ok {
		return idx.Clone(), nil
	}

	return nil, ErrIndexNotFound
}

// Save saves the index for an owner.
func (m *MockStore) Save(owner string, idx *models.VaultIndex) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		err := m.FailSave
		m.FailSave = nil
		return err
	}

	m.SaveCount++
	m.indexes[owner] = idx.Clone()
	return nil
}

// Upsert inserts or replaces one record.
func (m *MockStore) Upsert(owner string, record *models.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[owner]
	if !ok {
		idx = models.NewVaultIndex(owner)
		m.indexes[owner] = idx
	}

	idx.Upsert(record.Clone())
	m.SaveCount++
	return nil
}

// Remove deletes one record.
func (m *MockStore) Remove(owner string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.indexes[owner]
	if !ok || idx.Remove(id) == nil {
		return models.ErrRecordNotFound
	}

	m.SaveCount++
	return nil
}

// List returns records matching the filter.
func (m *MockStore) List(owner string, filter func(*models.FileRecord) bool) ([]*models.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.indexes[owner]
	if !ok {
		return nil, nil
	}

	return idx.Clone().Filter(filter), nil
}

// Reset removes all state for an owner.
func (m *MockStore) Reset(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.indexes, owner)
	return nil
}

// Close releases resources.
func (m *MockStore) Close() error {
	return nil
}
