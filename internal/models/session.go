package models

import (
	"time"
)

// SessionState names the session state machine states.
type SessionState string

const (
	// SessionLoggedOut means no session exists; no key, no index access.
	SessionLoggedOut SessionState = "logged_out"

	// SessionUnlocked means the derived master key is resident in memory
	// and an idle deadline is running.
	SessionUnlocked SessionState = "unlocked"

	// SessionLocked means the session exists but the resident key has been
	// discarded. Unlocking requires re-deriving from the passphrase.
	SessionLocked SessionState = "locked"
)

// Session is ephemeral per-login state. The resident derived key is the only
// secret ever held unencrypted, and only in memory; it is never serialized.
type Session struct {
	Owner     string    `json:"owner"`
	Username  string    `json:"username,omitempty"`
	LoginTime time.Time `json:"login_time"`

	// Demo sessions are restricted: one file, and all vault content
	// created during the session is purged on logout.
	Demo bool `json:"demo,omitempty"`
}

// AuditReport summarizes an integrity scan over the whole vault.
type AuditReport struct {
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	Totals      AuditTotals        `json:"totals"`
	Results     []AuditScanResult  `json:"results"`
}

// AuditTotals aggregates scan outcomes.
type AuditTotals struct {
	Files     int   `json:"files"`
	Verified  int   `json:"verified"`
	Failed    int   `json:"failed"`
	Missing   int   `json:"missing"`
	SizeBytes int64 `json:"size_bytes"`
}

// ScanStatus is the per-file outcome of an integrity scan.
type ScanStatus string

const (
	ScanVerified ScanStatus = "verified"
	ScanFailed   ScanStatus = "failed"
	ScanMissing  ScanStatus = "missing"
)

// AuditScanResult is one file's scan outcome.
type AuditScanResult struct {
	RecordID string     `json:"id"`
	Name     string     `json:"name"`
	Status   ScanStatus `json:"status"`
	Error    string     `json:"error,omitempty"`
}
