package totp

import (
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Issuer appears in authenticator apps next to the account name.
const Issuer = "CyberVault"

// Service provides TOTP enrollment and verification as a convenience
// second factor. TOTP never gates decryption; only the passphrase does.
type Service interface {
	// Enroll generates a fresh secret for an account. The returned URL is
	// the otpauth:// provisioning URI for authenticator apps.
	Enroll(account string) (secret, url string, err error)

	// GenerateCode generates the current TOTP code from a secret.
	GenerateCode(secret string) (string, error)

	// ValidateCode validates a TOTP code against a secret.
	ValidateCode(secret, code string) bool

	// GenerateCodeAtTime generates a TOTP code for a specific time.
	GenerateCodeAtTime(secret string, t time.Time) (string, error)
}

// DefaultService implements TOTP operations with standard parameters.
type DefaultService struct {
	period uint
	digits otp.Digits
}

// NewService creates a TOTP service with the standard 30-second window
// and 6-digit codes.
func NewService() *DefaultService {
	return &DefaultService{
		period: 30,
		digits: otp.DigitsSix,
	}
}

// Enroll generates a fresh secret for an account.
func (s *DefaultService) Enroll(account string) (string, string, error) {
	if account == "" {
		return "", "", fmt.Errorf("totp: account cannot be empty")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
		Period:      s.period,
		Digits:      s.digits,
	})
	if err != nil {
		return "", "", fmt.Errorf("totp: generate key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// GenerateCode generates the current TOTP code from a secret.
func (s *DefaultService) GenerateCode(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("totp: secret cannot be empty")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		return "", fmt.Errorf("totp: failed to generate code: %w", err)
	}

	return code, nil
}

// ValidateCode validates a TOTP code against a secret, with the library's
// standard one-period skew allowance.
func (s *DefaultService) ValidateCode(secret, code string) bool {
	if secret == "" || code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

// GenerateCodeAtTime generates a TOTP code for a specific time.
func (s *DefaultService) GenerateCodeAtTime(secret string, t time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("totp: secret cannot be empty")
	}

	code, err := totp.GenerateCode(secret, t)
	if err != nil {
		return "", fmt.Errorf("totp: failed to generate code at time %v: %w", t, err)
	}

	return code, nil
}

// TimeWindow returns the current TOTP window index and the time remaining
// in it, for countdown displays.
func (s *DefaultService) TimeWindow() (current int64, remaining time.Duration) {
	now := time.Now()
	current = now.Unix() / int64(s.period)

	nextWindow := (current + 1) * int64(s.period)
	remaining = time.Unix(nextWindow, 0).Sub(now)

	return current, remaining
}

// IsValidSecret checks whether a secret can produce codes.
func (s *DefaultService) IsValidSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("totp: secret cannot be empty")
	}

	if _, err := totp.GenerateCode(secret, time.Now()); err != nil {
		return fmt.Errorf("totp: invalid secret format: %w", err)
	}
	return nil
}
