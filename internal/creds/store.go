package creds

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/services/totp"
)

// ErrAccountNotFound means no account record exists for the owner.
var ErrAccountNotFound = errors.New("account not found")

// Account is the combined credential record for one owner: the passphrase
// verifier plus optional second-factor material. The verifier cannot
// reconstruct the passphrase or any encryption key.
type Account struct {
	Owner      string                     `json:"owner"`
	Verifier   *crypto.PassphraseVerifier `json:"verifier"`
	TOTPSecret string                     `json:"totp_secret,omitempty"`
	Recovery   *totp.RecoverySet          `json:"recovery,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// Validate checks account shape before persistence.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Owner) == "" {
		return fmt.Errorf("account owner is required")
	}
	if a.Verifier == nil || a.Verifier.Hash == "" || a.Verifier.SaltHex == "" {
		return fmt.Errorf("account verifier is incomplete")
	}
	return nil
}

// Store persists account credential records.
type Store interface {
	Load(owner string) (*Account, error)
	Save(account *Account) error
	Delete(owner string) error
}

// FileStore keeps one JSON file per owner under the credentials directory.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

// NewFileStore creates a file-backed account store.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create credentials directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) Load(owner string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.accountPath(owner))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("read account: %w", err)
	}

	var account Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}

	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account: %w", err)
	}

	return &account, nil
}

func (s *FileStore) Save(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	path := s.accountPath(account.Owner)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("write account: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("rename account: %w", err)
	}

	return nil
}

func (s *FileStore) Delete(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.accountPath(owner)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (s *FileStore) accountPath(owner string) string {
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
	return filepath.Join(s.baseDir, safe+".account.json")
}

// MockStore is an in-memory account store for tests.
type MockStore struct {
	mu       sync.Mutex
	accounts map[string]*Account

	// FailSave makes Save return this error when set.
	FailSave error
}

// NewMockStore creates an empty mock account store.
func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]*Account)}
}

func (m *MockStore) Load(owner string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[owner]
	if !ok {
		return nil, ErrAccountNotFound
	}

	clone := *account
	return &clone, nil
}

func (m *MockStore) Save(account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSave != nil {
		return m.FailSave
	}

	clone := *account
	m.accounts[account.Owner] = &clone
	return nil
}

func (m *MockStore) Delete(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.accounts, owner)
	return nil
}
