package models

import (
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditUnlockFailed  AuditEventType = "unlock_failed"
	AuditDecryptFailed AuditEventType = "decrypt_failed"
	AuditManualLock    AuditEventType = "manual_lock"
	AuditAutoLock      AuditEventType = "auto_lock"
	AuditUnlock        AuditEventType = "unlock"
	AuditEncrypt       AuditEventType = "encrypt"
	AuditDecrypt       AuditEventType = "decrypt"
	AuditBackup        AuditEventType = "backup"
	AuditRestore       AuditEventType = "restore"
	AuditRotation      AuditEventType = "rotation"
	AuditPurge         AuditEventType = "purge"
	AuditLogout        AuditEventType = "logout"
)

// AuditEvent is one append-only log entry. Events feed the advisory risk
// score and are retained in a bounded ring.
type AuditEvent struct {
	ID     string         `json:"id"`
	Type   AuditEventType `json:"type"`
	Detail string         `json:"detail"`
	At     time.Time      `json:"at"`
}

// AuditLog is a bounded ring of events, newest first. Oldest entries are
// evicted past the cap.
type AuditLog struct {
	Events []AuditEvent `json:"events"`
	Cap    int          `json:"cap"`
}

// DefaultAuditCap bounds local audit retention.
const DefaultAuditCap = 200

// NewAuditLog creates an empty log with the given cap (or the default).
func NewAuditLog(cap int) *AuditLog {
	if cap <= 0 {
		cap = DefaultAuditCap
	}
	return &AuditLog{Cap: cap}
}

// Append adds an event at the front, evicting past the cap.
func (l *AuditLog) Append(event AuditEvent) {
	l.Events = append([]AuditEvent{event}, l.Events...)
	if len(l.Events) > l.Cap {
		l.Events = l.Events[:l.Cap]
	}
}

// Since returns events at or after the cutoff, newest first.
func (l *AuditLog) Since(cutoff time.Time) []AuditEvent {
	var out []AuditEvent
	for _, e := range l.Events {
		if !e.At.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// CountByType tallies events of one type at or after the cutoff.
func (l *AuditLog) CountByType(t AuditEventType, cutoff time.Time) int {
	n := 0
	for _, e := range l.Events {
		if e.Type == t && !e.At.Before(cutoff) {
			n++
		}
	}
	return n
}
