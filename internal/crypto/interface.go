package crypto

// Provider defines the interface for cryptographic operations.
type Provider interface {
	// DeriveKey derives a symmetric key from a passphrase and salt.
	DeriveKey(passphrase string, salt []byte) []byte

	// Encrypt seals plaintext under the key with a fresh nonce.
	Encrypt(plaintext, key []byte) (ciphertext, iv []byte, err error)

	// Decrypt opens ciphertext sealed with the given nonce and key.
	Decrypt(ciphertext, iv, key []byte) ([]byte, error)

	// Checksum returns the hex SHA-256 digest of data.
	Checksum(data []byte) string

	// GenerateSalt returns a fresh random salt.
	GenerateSalt() ([]byte, error)
}
