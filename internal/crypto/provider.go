package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"

	"github.com/cybervault/cybervault/internal/models"
)

const (
	// Key sizes
	KeySize   = 32 // AES-256
	NonceSize = 12 // GCM standard
	TagSize   = 16 // GCM tag
	SaltSize  = 16

	// PBKDF2 parameters
	Iterations = 250000
)

// Errors
var (
	ErrInvalidKey        = errors.New("invalid key size")
	ErrInvalidNonce      = errors.New("invalid nonce size")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
)

// VaultProvider implements Provider with PBKDF2-SHA256 key derivation and
// AES-256-GCM authenticated encryption.
type VaultProvider struct {
	iterations int
}

// NewProvider creates a crypto provider.
func NewProvider() Provider {
	return &VaultProvider{
		iterations: Iterations,
	}
}

// DeriveKey derives a 256-bit key from a passphrase and salt.
//
// Same (passphrase, salt) always yields the same key; older files whose
// salts differ from the current session salt rely on this. A wrong
// passphrase does not fail here: it yields a key that fails authentication
// at decryption time, so derivation leaks no passphrase correctness.
func (p *VaultProvider) DeriveKey(passphrase string, salt []byte) []byte {
	normalized := norm.NFKC.String(passphrase)
	return pbkdf2.Key([]byte(normalized), salt, p.iterations, KeySize, sha256.New)
}

// Encrypt seals plaintext under the key using AES-256-GCM with a fresh
// 12-byte nonce. The returned ciphertext carries the GCM tag at the end per
// Go's AEAD convention; the nonce is returned separately for storage
// alongside the record.
func (p *VaultProvider) Encrypt(plaintext, key []byte) ([]byte, []byte, error) {
	if len(key) != KeySize {
		return nil, nil, ErrInvalidKey
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	// Fresh nonce on every call. Nonce reuse under the same key is a fatal
	// security violation; no counters, no sharing across files.
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext with the given nonce and key. A tag verification
// failure returns models.ErrAuthentication: wrong key or corrupted bytes,
// never a silent wrong-plaintext result.
func (p *VaultProvider) Decrypt(ciphertext, iv, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	if len(iv) != NonceSize {
		return nil, ErrInvalidNonce
	}

	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, models.ErrAuthentication
	}

	return plaintext, nil
}

// Checksum returns the hex SHA-256 digest of data.
func (p *VaultProvider) Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenerateSalt returns a fresh 16-byte random salt.
func (p *VaultProvider) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return aead, nil
}
