package models

import (
	"fmt"
	"strings"
	"time"
)

// VaultIndex is the ordered catalog of file records for one vault owner.
// Loaded once per session, mutated in memory, persisted after each mutation.
// Exactly one active session owns write access at a time.
type VaultIndex struct {
	Owner     string        `json:"owner"`
	Records   []*FileRecord `json:"records"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewVaultIndex creates an empty index for an owner.
func NewVaultIndex(owner string) *VaultIndex {
	return &VaultIndex{
		Owner:   owner,
		Records: []*FileRecord{},
	}
}

// Upsert inserts a record or replaces one with the same ID, preserving its
// position in the ordering.
func (idx *VaultIndex) Upsert(record *FileRecord) {
	for i, r := range idx.Records {
		if r.ID == record.ID {
			idx.Records[i] = record
			idx.UpdatedAt = time.Now()
			return
		}
	}
	idx.Records = append(idx.Records, record)
	idx.UpdatedAt = time.Now()
}

// Remove deletes a record by ID. Returns the removed record, or nil.
func (idx *VaultIndex) Remove(id string) *FileRecord {
	for i, r := range idx.Records {
		if r.ID == id {
			idx.Records = append(idx.Records[:i], idx.Records[i+1:]...)
			idx.UpdatedAt = time.Now()
			return r
		}
	}
	return nil
}

// Get finds a record by ID, or nil.
func (idx *VaultIndex) Get(id string) *FileRecord {
	for _, r := range idx.Records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Filter returns records matching the predicate, in index order. A nil
// predicate matches everything.
func (idx *VaultIndex) Filter(pred func(*FileRecord) bool) []*FileRecord {
	var out []*FileRecord
	for _, r := range idx.Records {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of records.
func (idx *VaultIndex) Count() int {
	return len(idx.Records)
}

// TotalSize sums declared sizes across all records.
func (idx *VaultIndex) TotalSize() int64 {
	var total int64
	for _, r := range idx.Records {
		total += r.Size
	}
	return total
}

// Validate checks index structure and every record in it.
func (idx *VaultIndex) Validate() error {
	if strings.TrimSpace(idx.Owner) == "" {
		return fmt.Errorf("index owner is required")
	}

	seen := make(map[string]bool, len(idx.Records))
	for _, r := range idx.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %s: %w", r.ID, err)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate record ID: %s", r.ID)
		}
		seen[r.ID] = true
	}

	return nil
}

// Clone returns a deep copy of the index.
func (idx *VaultIndex) Clone() *VaultIndex {
	clone := &VaultIndex{
		Owner:     idx.Owner,
		UpdatedAt: idx.UpdatedAt,
		Records:   make([]*FileRecord, len(idx.Records)),
	}
	for i, r := range idx.Records {
		clone.Records[i] = r.Clone()
	}
	return clone
}
