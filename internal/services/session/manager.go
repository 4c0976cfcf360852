package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cybervault/cybervault/internal/config"
	"github.com/cybervault/cybervault/internal/creds"
	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

// Purger removes all of an owner's vault content. Demo sessions purge on
// logout.
type Purger interface {
	PurgeOwner(owner string) (int, error)
}

// Manager runs the session state machine. While unlocked it holds the
// passphrase resident in memory so vault operations can derive per-record
// keys; locking zeroizes it. Nothing derived from the passphrase is ever
// written to disk.
type Manager struct {
	mu sync.Mutex

	accounts creds.Store
	purger   Purger
	logger   *events.Logger

	minPassphraseLen int
	idleTimeout      time.Duration
	autoLock         bool

	state        models.SessionState
	session      *models.Session
	passphrase   []byte
	lastActivity time.Time

	audit *models.AuditLog

	// now is replaceable for idle-deadline tests.
	now func() time.Time
}

// NewManager creates a session manager in the logged-out state.
func NewManager(accounts creds.Store, purger Purger, cfg *config.Config, logger *events.Logger) *Manager {
	return &Manager{
		accounts:         accounts,
		purger:           purger,
		logger:           logger.WithField("service", "session"),
		minPassphraseLen: cfg.Vault.MinPassphraseLen,
		idleTimeout:      cfg.Session.IdleTimeout,
		autoLock:         cfg.Session.AutoLock,
		state:            models.SessionLoggedOut,
		audit:            models.NewAuditLog(cfg.Vault.AuditLogCap),
		now:              time.Now,
	}
}

// Register creates an account with a passphrase verifier. The passphrase
// itself is never stored.
func (m *Manager) Register(owner, passphrase string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("owner is required")
	}
	if len(passphrase) < m.minPassphraseLen {
		return models.ErrWeakPassphrase
	}

	if _, err := m.accounts.Load(owner); err == nil {
		return fmt.Errorf("account already exists: %s", owner)
	} else if !errors.Is(err, creds.ErrAccountNotFound) {
		return err
	}

	verifier, err := crypto.NewPassphraseVerifier(passphrase)
	if err != nil {
		return err
	}

	account := &creds.Account{
		Owner:     owner,
		Verifier:  verifier,
		CreatedAt: m.now().UTC(),
	}
	if err := m.accounts.Save(account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	m.logger.WithField("owner", owner).Info("Account registered")
	return nil
}

// Login verifies the passphrase and opens an unlocked session. A wrong
// passphrase is audited and surfaces as an authentication error.
func (m *Manager) Login(owner, passphrase string) (*models.Session, error) {
	account, err := m.accounts.Load(owner)
	if err != nil {
		if errors.Is(err, creds.ErrAccountNotFound) {
			return nil, models.ErrAuthentication
		}
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !account.Verifier.Verify(passphrase) {
		m.record(models.AuditUnlockFailed, "login: wrong passphrase")
		m.logger.WithField("owner", owner).Warn("Login failed")
		return nil, models.ErrAuthentication
	}

	m.session = &models.Session{
		Owner:     owner,
		Username:  owner,
		LoginTime: m.now().UTC(),
	}
	m.becomeUnlocked(passphrase)
	m.record(models.AuditUnlock, "login")

	m.logger.WithField("owner", owner).Info("Session unlocked")
	return m.session, nil
}

// LoginDemo opens a restricted demo session without an account. Demo vault
// content is purged on logout.
func (m *Manager) LoginDemo(owner, passphrase string) (*models.Session, error) {
	if len(passphrase) < m.minPassphraseLen {
		return nil, models.ErrWeakPassphrase
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = &models.Session{
		Owner:     owner,
		Username:  owner,
		LoginTime: m.now().UTC(),
		Demo:      true,
	}
	m.becomeUnlocked(passphrase)
	m.record(models.AuditUnlock, "demo login")

	m.logger.WithField("owner", owner).Info("Demo session started")
	return m.session, nil
}

// Unlock re-verifies the passphrase on a locked session.
func (m *Manager) Unlock(passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.SessionLocked {
		return fmt.Errorf("cannot unlock from state %s", m.state)
	}

	if m.session.Demo {
		// Demo sessions have no stored verifier; any passphrase that
		// meets the length floor reopens them.
		if len(passphrase) < m.minPassphraseLen {
			m.record(models.AuditUnlockFailed, "unlock: weak passphrase")
			return models.ErrAuthentication
		}
	} else {
		account, err := m.accounts.Load(m.session.Owner)
		if err != nil {
			return err
		}
		if !account.Verifier.Verify(passphrase) {
			m.record(models.AuditUnlockFailed, "unlock: wrong passphrase")
			m.logger.WithField("owner", m.session.Owner).Warn("Unlock failed")
			return models.ErrAuthentication
		}
	}

	m.becomeUnlocked(passphrase)
	m.record(models.AuditUnlock, "unlock")
	return nil
}

// Lock discards the resident passphrase. The session survives; unlocking
// requires the passphrase again.
func (m *Manager) Lock(manual bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.SessionUnlocked {
		return fmt.Errorf("cannot lock from state %s", m.state)
	}

	m.lockLocked(manual)
	return nil
}

// Logout ends the session entirely. Demo sessions purge their vault
// content first.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == models.SessionLoggedOut {
		return nil
	}

	if m.session.Demo && m.purger != nil {
		purged, err := m.purger.PurgeOwner(m.session.Owner)
		if err != nil {
			return fmt.Errorf("purge demo vault: %w", err)
		}
		m.record(models.AuditPurge, fmt.Sprintf("demo purge: %d files", purged))
		m.logger.WithFields(map[string]interface{}{
			"owner": m.session.Owner,
			"files": purged,
		}).Info("Demo vault purged")
	}

	m.zeroize()
	m.record(models.AuditLogout, "logout")
	m.session = nil
	m.state = models.SessionLoggedOut
	return nil
}

// Rotator re-encrypts every payload an owner has under a new passphrase.
type Rotator interface {
	Rotate(ctx context.Context, owner, oldPassphrase, newPassphrase string) (int, error)
}

// RotatePassphrase re-keys the unlock verifier and rotates every payload
// under the new passphrase. The verifier is switched first and restored if
// the rotation fails, so one failure never leaves the verifier and the
// payloads keyed to different passphrases. Demo sessions have no account,
// so only the payloads rotate. On success the resident passphrase is
// swapped in place; the session stays unlocked.
func (m *Manager) RotatePassphrase(ctx context.Context, rotator Rotator, newPassphrase string) (int, error) {
	if len(newPassphrase) < m.minPassphraseLen {
		return 0, models.ErrWeakPassphrase
	}

	oldPassphrase, err := m.Passphrase()
	if err != nil {
		return 0, err
	}
	sess := m.Current()

	var account *creds.Account
	var oldVerifier *crypto.PassphraseVerifier
	if !sess.Demo {
		account, err = m.accounts.Load(sess.Owner)
		if err != nil {
			return 0, fmt.Errorf("load account: %w", err)
		}
		verifier, err := crypto.NewPassphraseVerifier(newPassphrase)
		if err != nil {
			return 0, err
		}
		oldVerifier, account.Verifier = account.Verifier, verifier
		if err := m.accounts.Save(account); err != nil {
			return 0, fmt.Errorf("re-key account: %w", err)
		}
	}

	count, err := rotator.Rotate(ctx, sess.Owner, oldPassphrase, newPassphrase)
	if err != nil {
		if account != nil {
			account.Verifier = oldVerifier
			if saveErr := m.accounts.Save(account); saveErr != nil {
				m.logger.WithError(saveErr).Error("Verifier rollback failed")
				return 0, fmt.Errorf("rotation failed and the unlock verifier could not be restored; "+
					"unlock with the NEW passphrase, files remain under the OLD one: %w", err)
			}
		}
		return 0, err
	}

	m.mu.Lock()
	if m.state == models.SessionUnlocked {
		m.becomeUnlocked(newPassphrase)
	}
	m.record(models.AuditRotation, fmt.Sprintf("%d files", count))
	m.mu.Unlock()

	m.logger.WithFields(map[string]interface{}{
		"owner": sess.Owner,
		"files": count,
	}).Info("Passphrase rotated")
	return count, nil
}

// Passphrase returns the resident passphrase for key derivation. The idle
// deadline is checked first: an expired session auto-locks here rather
// than waiting for a background sweep.
func (m *Manager) Passphrase() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureUnlockedLocked(); err != nil {
		return "", err
	}

	m.lastActivity = m.now()
	return string(m.passphrase), nil
}

// Touch resets the idle deadline.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == models.SessionUnlocked {
		m.lastActivity = m.now()
	}
}

// CheckIdle locks the session if the idle deadline has passed. Returns
// whether a lock happened.
func (m *Manager) CheckIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.SessionUnlocked || !m.autoLock {
		return false
	}
	if m.now().Sub(m.lastActivity) < m.idleTimeout {
		return false
	}

	m.lockLocked(false)
	return true
}

// State returns the current session state.
func (m *Manager) State() models.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session, or nil when logged out.
func (m *Manager) Current() *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	clone := *m.session
	return &clone
}

// RecordEvent appends an audit event from outside the manager, for
// operations the manager does not see directly.
func (m *Manager) RecordEvent(eventType models.AuditEventType, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(eventType, detail)
}

// Events returns a snapshot of the audit ring, newest first.
func (m *Manager) Events() []models.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditEvent(nil), m.audit.Events...)
}

// RiskScore is an advisory 1-10 score over the trailing 24 hours. Failed
// unlocks weigh most, failed decryptions more, manual locks least.
func (m *Manager) RiskScore() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-24 * time.Hour)
	score := 1.0 +
		1.5*float64(m.audit.CountByType(models.AuditUnlockFailed, cutoff)) +
		2.0*float64(m.audit.CountByType(models.AuditDecryptFailed, cutoff)) +
		0.5*float64(m.audit.CountByType(models.AuditManualLock, cutoff))

	if score > 10 {
		score = 10
	}
	return score
}

func (m *Manager) becomeUnlocked(passphrase string) {
	m.zeroize()
	m.passphrase = []byte(passphrase)
	m.state = models.SessionUnlocked
	m.lastActivity = m.now()
}

func (m *Manager) lockLocked(manual bool) {
	m.zeroize()
	m.state = models.SessionLocked

	if manual {
		m.record(models.AuditManualLock, "manual lock")
	} else {
		m.record(models.AuditAutoLock, "idle timeout")
	}
	m.logger.WithFields(map[string]interface{}{
		"owner":  m.session.Owner,
		"manual": manual,
	}).Info("Session locked")
}

func (m *Manager) ensureUnlockedLocked() error {
	switch m.state {
	case models.SessionLoggedOut:
		return models.ErrNotUnlocked
	case models.SessionLocked:
		return models.ErrSessionLocked
	}

	if m.autoLock && m.now().Sub(m.lastActivity) >= m.idleTimeout {
		m.lockLocked(false)
		return models.ErrSessionLocked
	}
	return nil
}

func (m *Manager) zeroize() {
	for i := range m.passphrase {
		m.passphrase[i] = 0
	}
	m.passphrase = nil
}

func (m *Manager) record(eventType models.AuditEventType, detail string) {
	m.audit.Append(models.AuditEvent{
		ID:     uuid.New().String(),
		Type:   eventType,
		Detail: detail,
		At:     m.now(),
	})
}
