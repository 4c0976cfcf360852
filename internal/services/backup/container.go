package backup

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cybervault/cybervault/internal/models"
)

// ContainerVersion is the current backup container format version.
const ContainerVersion = 1

// container is the on-disk backup envelope. The manifest is encrypted as a
// whole; salt and nonce for the container key live in the clear alongside
// the ciphertext.
type container struct {
	Version    int    `json:"v"`
	Salt       string `json:"s"`
	Nonce      string `json:"i"`
	Ciphertext string `json:"c"`
}

// manifest is the plaintext inside a container. Each record carries its
// payload inline; refs are meaningless outside the vault that wrote them.
type manifest struct {
	Owner     string               `json:"owner"`
	CreatedAt string               `json:"created_at"`
	Files     []*models.FileRecord `json:"files"`
}

func encodeContainer(salt, nonce, ciphertext []byte) ([]byte, error) {
	c := container{
		Version:    ContainerVersion,
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.Marshal(&c)
}

func decodeContainer(data []byte) (salt, nonce, ciphertext []byte, err error) {
	var c container
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, nil, nil, fmt.Errorf("parse container: %w", err)
	}
	if c.Version != ContainerVersion {
		return nil, nil, nil, fmt.Errorf("unsupported container version: %d", c.Version)
	}

	salt, err = hex.DecodeString(c.Salt)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	nonce, err = hex.DecodeString(c.Nonce)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode nonce: %w", err)
	}
	ciphertext, err = base64.StdEncoding.DecodeString(c.Ciphertext)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	if len(salt) != models.SaltSize {
		return nil, nil, nil, fmt.Errorf("bad salt length: %d", len(salt))
	}
	if len(nonce) != models.NonceSize {
		return nil, nil, nil, fmt.Errorf("bad nonce length: %d", len(nonce))
	}

	return salt, nonce, ciphertext, nil
}
