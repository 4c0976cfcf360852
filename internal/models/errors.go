package models

import (
	"errors"
	"fmt"
)

// Error codes for structured error handling.
const (
	ErrCodeAuth      = "AUTH_ERROR"
	ErrCodeIntegrity = "INTEGRITY_ERROR"
	ErrCodeMissing   = "MISSING_PAYLOAD"
	ErrCodeRestore   = "RESTORE_FAILED"
	ErrCodeRotation  = "ROTATION_FAILED"
	ErrCodeCapture   = "CAPTURE_CANCELLED"
	ErrCodeStorage   = "STORAGE_ERROR"
	ErrCodeIndex     = "INDEX_ERROR"
	ErrCodeConfig    = "CONFIG_ERROR"
	ErrCodeSession   = "SESSION_ERROR"
)

// Sentinel errors
var (
	// ErrAuthentication means authenticated decryption failed: wrong key or
	// corrupted ciphertext. Never retried automatically.
	ErrAuthentication = errors.New("authentication failed: wrong key or corrupted ciphertext")

	// ErrCaptureCancelled means a biometric capture was aborted by the user
	// or environment. Distinct from a mismatch and never audited as one.
	ErrCaptureCancelled = errors.New("capture cancelled")

	ErrSessionLocked    = errors.New("session is locked")
	ErrNotUnlocked      = errors.New("no resident key: vault is not unlocked")
	ErrWeakPassphrase   = errors.New("passphrase must be at least 8 characters")
	ErrBiometricNoMatch = errors.New("biometric sample does not match stored template")
	ErrNotRegistered    = errors.New("biometric factor not registered")
	ErrRecordNotFound   = errors.New("record not found")
)

// IntegrityError means decryption succeeded cryptographically but the
// recomputed plaintext checksum disagrees with the stored one. This is data
// corruption, not a wrong key, and the remediation differs completely.
type IntegrityError struct {
	RecordID string
	Name     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s (%s): expected %s, got %s",
		e.Name, e.RecordID, e.Expected, e.Actual)
}

// MissingPayloadError means the index references a blob that cannot be found.
// Reported per-file during scans; does not abort a batch.
type MissingPayloadError struct {
	RecordID string
	Name     string
	Ref      string
}

func (e *MissingPayloadError) Error() string {
	return fmt.Sprintf("missing payload for %s (%s): blob %s not found", e.Name, e.RecordID, e.Ref)
}

// DecryptError wraps a per-record decryption failure with context.
type DecryptError struct {
	RecordID string
	Name     string
	Reason   string
	Err      error
}

func (e *DecryptError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("decrypt %s: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("decrypt: %s: %v", e.Reason, e.Err)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

// RestoreError reports one failure for a whole restore operation. Partial
// completion is never exposed as success.
type RestoreError struct {
	Reason string
	Err    error
}

func (e *RestoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("restore failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("restore failed: %s", e.Reason)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// RotationError reports one failure for a whole rotation, naming the record
// that failed. The vault is left exactly as it was before rotation started.
type RotationError struct {
	RecordID string
	Name     string
	Err      error
}

func (e *RotationError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("rotation failed at %s (%s): %v", e.Name, e.RecordID, e.Err)
	}
	return fmt.Sprintf("rotation failed: %v", e.Err)
}

func (e *RotationError) Unwrap() error {
	return e.Err
}
