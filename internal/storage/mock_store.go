package storage

import (
	"sort"
	"sync"
)

// MockStore is an in-memory BlobStore for tests.
type MockStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailWrite makes Write return this error when set.
	FailWrite error

	// WriteCount tracks successful writes for call assertions.
	WriteCount int
}

// NewMockStore creates an empty mock store.
func NewMockStore() *MockStore {
	return &MockStore{blobs: make(map[string][]byte)}
}

func (m *MockStore) Write(ref string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrite != nil {
		return m.FailWrite
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.blobs[ref] = buf
	m.WriteCount++
	return nil
}

func (m *MockStore) Read(ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[ref]
	if !ok {
		return nil, ErrBlobNotFound
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *MockStore) Delete(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.blobs, ref)
	return nil
}

func (m *MockStore) Exists(ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.blobs[ref]
	return ok, nil
}

func (m *MockStore) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := make([]string, 0, len(m.blobs))
	for ref := range m.blobs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

// Drop removes a blob without going through Delete, for simulating
// missing payloads in integrity tests.
func (m *MockStore) Drop(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
}
