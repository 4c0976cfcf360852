package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sizes of per-file cryptographic inputs.
const (
	SaltSize  = 16
	NonceSize = 12
)

// FileRecord is one stored file's metadata. The payload itself lives in the
// blob store (or inline, inside a backup container); this record carries
// everything needed to decrypt and verify it.
type FileRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadDate"`

	// Payload is either a blob-store reference or inline ciphertext,
	// resolved explicitly at read time.
	Payload Payload `json:"payload"`

	// Salt and IV are unique per file, generated at encryption time and
	// replaced wholesale on rotation. Never reused across files.
	Salt []byte `json:"salt"`
	IV   []byte `json:"iv"`

	// Checksum is the hex SHA-256 of the plaintext, computed at encryption
	// time. It is never recomputed without re-encryption.
	Checksum string `json:"checksum"`

	Tags []string `json:"tags,omitempty"`
}

// Payload is a tagged variant: exactly one of Ref or Inline is set.
type Payload struct {
	// Ref names a blob in the external blob store.
	Ref string `json:"ref,omitempty"`

	// Inline holds ciphertext directly, used inside backup containers.
	Inline []byte `json:"inline,omitempty"`
}

// IsInline reports whether the payload carries ciphertext directly.
func (p Payload) IsInline() bool {
	return len(p.Inline) > 0
}

// Validate checks record shape before persistence.
func (r *FileRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record ID is required")
	}

	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("record name is required")
	}

	if len(r.Salt) != SaltSize {
		return fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(r.Salt))
	}

	if len(r.IV) != NonceSize {
		return fmt.Errorf("iv must be %d bytes, got %d", NonceSize, len(r.IV))
	}

	if strings.TrimSpace(r.Checksum) == "" {
		return fmt.Errorf("checksum is required")
	}

	if r.Payload.Ref == "" && !r.Payload.IsInline() {
		return fmt.Errorf("record has neither payload ref nor inline ciphertext")
	}

	return nil
}

// NaturalKey identifies a record across vaults for restore merging.
// Two records with the same name, size, and plaintext checksum are the
// same file regardless of their salts, IVs, or blob refs.
func (r *FileRecord) NaturalKey() string {
	return fmt.Sprintf("%s|%d|%s", r.Name, r.Size, r.Checksum)
}

// SetTags replaces the tag set, normalized to lowercase, deduplicated, sorted.
func (r *FileRecord) SetTags(tags []string) {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	r.Tags = out
}

// HasTag reports whether the record carries the given tag.
func (r *FileRecord) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *FileRecord) Clone() *FileRecord {
	clone := *r
	clone.Salt = append([]byte(nil), r.Salt...)
	clone.IV = append([]byte(nil), r.IV...)
	clone.Tags = append([]string(nil), r.Tags...)
	clone.Payload.Inline = append([]byte(nil), r.Payload.Inline...)
	return &clone
}
