package totp_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/services/totp"
)

func TestService_Enroll(t *testing.T) {
	service := totp.NewService()

	secret, url, err := service.Enroll("alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "CyberVault")

	// The freshly enrolled secret produces validating codes.
	code, err := service.GenerateCode(secret)
	require.NoError(t, err)
	assert.True(t, service.ValidateCode(secret, code))

	_, _, err = service.Enroll("")
	assert.Error(t, err)
}

func TestService_GenerateCode(t *testing.T) {
	service := totp.NewService()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"valid secret", "JBSWY3DPEHPK3PXP", false},
		{"longer secret", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", false},
		{"empty secret", "", true},
		{"invalid base32", "not-base32!@#", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := service.GenerateCode(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, code)
			} else {
				assert.NoError(t, err)
				assert.Regexp(t, `^\d{6}$`, code)
			}
		})
	}
}

func TestService_ValidateCode(t *testing.T) {
	service := totp.NewService()
	secret := "JBSWY3DPEHPK3PXP"

	code, err := service.GenerateCode(secret)
	require.NoError(t, err)

	assert.True(t, service.ValidateCode(secret, code))
	assert.False(t, service.ValidateCode(secret, "000000"))
	assert.False(t, service.ValidateCode("", code))
	assert.False(t, service.ValidateCode(secret, ""))
}

func TestService_GenerateCodeAtTime(t *testing.T) {
	service := totp.NewService()
	secret := "JBSWY3DPEHPK3PXP"

	t1 := time.Unix(1234567890, 0)
	t2 := t1.Add(30 * time.Second)
	sameWindow := t1.Add(10 * time.Second)

	code1, err := service.GenerateCodeAtTime(secret, t1)
	require.NoError(t, err)
	code2, err := service.GenerateCodeAtTime(secret, t2)
	require.NoError(t, err)
	code3, err := service.GenerateCodeAtTime(secret, sameWindow)
	require.NoError(t, err)

	assert.NotEqual(t, code1, code2)
	assert.Equal(t, code1, code3)
}

func TestService_TimeWindow(t *testing.T) {
	service := totp.NewService()

	current, remaining := service.TimeWindow()
	assert.Greater(t, current, int64(0))
	assert.GreaterOrEqual(t, remaining, time.Duration(0))
	assert.Less(t, remaining, 30*time.Second)
}

func TestService_IsValidSecret(t *testing.T) {
	service := totp.NewService()

	assert.NoError(t, service.IsValidSecret("JBSWY3DPEHPK3PXP"))
	assert.Error(t, service.IsValidSecret(""))
	assert.Error(t, service.IsValidSecret("invalid!@#"))
}

func TestRecoveryCodes_GenerateAndRedeem(t *testing.T) {
	codes, set, err := totp.GenerateRecoveryCodes()
	require.NoError(t, err)
	require.Len(t, codes, totp.RecoveryCodeCount)
	assert.Equal(t, totp.RecoveryCodeCount, set.Remaining())

	for _, code := range codes {
		assert.Regexp(t, `^[0-9A-F]{5}-[0-9A-F]{5}$`, code)
	}

	// Plaintext codes are never stored.
	for _, code := range codes {
		for _, hash := range set.Hashes {
			assert.NotEqual(t, code, hash)
		}
	}

	assert.True(t, set.Redeem(codes[0]))
	assert.Equal(t, totp.RecoveryCodeCount-1, set.Remaining())

	// A code works exactly once.
	assert.False(t, set.Redeem(codes[0]))

	// Case and whitespace are forgiven.
	assert.True(t, set.Redeem("  "+strings.ToLower(codes[1])+" "))

	assert.False(t, set.Redeem("ZZZZZ-ZZZZZ"))
}

func TestRecoveryCodes_Unique(t *testing.T) {
	codes, _, err := totp.GenerateRecoveryCodes()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
	}
}
