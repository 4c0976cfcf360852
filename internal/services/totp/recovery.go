package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Recovery code parameters. Codes are shown to the user exactly once;
// only their hashes are kept.
const (
	RecoveryCodeCount = 8
	recoveryCodeBytes = 5 // 10 hex chars, grouped as XXXXX-XXXXX
)

// RecoverySet holds hashed single-use recovery codes.
type RecoverySet struct {
	Hashes []string `json:"hashes"`
	Used   []bool   `json:"used"`
}

// GenerateRecoveryCodes creates a fresh code set. The plaintext codes are
// returned for one-time display; the set stores only hashes.
func GenerateRecoveryCodes() ([]string, *RecoverySet, error) {
	codes := make([]string, RecoveryCodeCount)
	set := &RecoverySet{
		Hashes: make([]string, RecoveryCodeCount),
		Used:   make([]bool, RecoveryCodeCount),
	}

	for i := range codes {
		buf := make([]byte, recoveryCodeBytes)
		if _, err := rand.Read(buf); err != nil {
			return nil, nil, fmt.Errorf("generate recovery code: %w", err)
		}

		raw := strings.ToUpper(hex.EncodeToString(buf))
		codes[i] = raw[:5] + "-" + raw[5:]
		set.Hashes[i] = hashRecoveryCode(codes[i])
	}

	return codes, set, nil
}

// Redeem consumes a recovery code. Each code works exactly once; spent and
// unknown codes are indistinguishable to the caller.
func (s *RecoverySet) Redeem(code string) bool {
	target := hashRecoveryCode(code)

	matched := -1
	for i, h := range s.Hashes {
		// Compare every entry to keep timing independent of position.
		if subtle.ConstantTimeCompare([]byte(h), []byte(target)) == 1 && !s.Used[i] {
			matched = i
		}
	}

	if matched < 0 {
		return false
	}
	s.Used[matched] = true
	return true
}

// Remaining counts unspent codes.
func (s *RecoverySet) Remaining() int {
	n := 0
	for _, used := range s.Used {
		if !used {
			n++
		}
	}
	return n
}

func hashRecoveryCode(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
