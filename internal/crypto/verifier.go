package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

// PassphraseVerifier gates unlocking without ever storing the passphrase or
// the derived encryption key: only a salted digest of the passphrase is kept.
// It is never used as key material.
type PassphraseVerifier struct {
	SaltHex string `json:"salt"`
	Hash    string `json:"hash"`
}

// NewPassphraseVerifier creates a verifier with a fresh salt.
func NewPassphraseVerifier(passphrase string) (*PassphraseVerifier, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate verifier salt: %w", err)
	}

	saltHex := hex.EncodeToString(salt)
	return &PassphraseVerifier{
		SaltHex: saltHex,
		Hash:    hashPassphrase(passphrase, saltHex),
	}, nil
}

// Verify reports whether the passphrase matches, in constant time.
func (v *PassphraseVerifier) Verify(passphrase string) bool {
	computed := hashPassphrase(passphrase, v.SaltHex)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(v.Hash)) == 1
}

func hashPassphrase(passphrase, saltHex string) string {
	sum := sha256.Sum256([]byte(passphrase + saltHex))
	return hex.EncodeToString(sum[:])
}
