package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/config"
	"github.com/cybervault/cybervault/internal/creds"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

const (
	testOwner      = "alice@example.com"
	testPassphrase = "correct horse battery staple"
)

// fakePurger counts purge calls.
type fakePurger struct {
	purged map[string]int
}

func (p *fakePurger) PurgeOwner(owner string) (int, error) {
	if p.purged == nil {
		p.purged = make(map[string]int)
	}
	p.purged[owner] = 3
	return 3, nil
}

// fakeRotator records rotation calls without touching any payloads.
type fakeRotator struct {
	count int
	err   error
	calls []string
}

func (r *fakeRotator) Rotate(ctx context.Context, owner, oldPass, newPass string) (int, error) {
	r.calls = append(r.calls, oldPass+" -> "+newPass)
	if r.err != nil {
		return 0, r.err
	}
	return r.count, nil
}

// fakeClock is a controllable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T) (*Manager, *fakePurger, *fakeClock) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Session.IdleTimeout = 5 * time.Minute

	purger := &fakePurger{}
	manager := NewManager(creds.NewMockStore(), purger, cfg, events.Discard())

	clock := &fakeClock{t: time.Now()}
	manager.now = clock.now

	require.NoError(t, manager.Register(testOwner, testPassphrase))
	return manager, purger, clock
}

func TestManager_RegisterValidation(t *testing.T) {
	manager, _, _ := newTestManager(t)

	assert.ErrorIs(t, manager.Register("bob@example.com", "short"), models.ErrWeakPassphrase)
	assert.Error(t, manager.Register("", testPassphrase))

	// Duplicate registration is rejected.
	assert.Error(t, manager.Register(testOwner, testPassphrase))
}

func TestManager_LoginLogout(t *testing.T) {
	manager, _, _ := newTestManager(t)

	assert.Equal(t, models.SessionLoggedOut, manager.State())
	assert.Nil(t, manager.Current())

	session, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)
	assert.Equal(t, testOwner, session.Owner)
	assert.False(t, session.Demo)
	assert.Equal(t, models.SessionUnlocked, manager.State())

	passphrase, err := manager.Passphrase()
	require.NoError(t, err)
	assert.Equal(t, testPassphrase, passphrase)

	require.NoError(t, manager.Logout())
	assert.Equal(t, models.SessionLoggedOut, manager.State())

	_, err = manager.Passphrase()
	assert.ErrorIs(t, err, models.ErrNotUnlocked)
}

func TestManager_LoginWrongPassphrase(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Login(testOwner, "wrong")
	assert.ErrorIs(t, err, models.ErrAuthentication)

	// Unknown owners fail identically.
	_, err = manager.Login("nobody@example.com", testPassphrase)
	assert.ErrorIs(t, err, models.ErrAuthentication)

	events := manager.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, models.AuditUnlockFailed, events[0].Type)
}

func TestManager_LockUnlock(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	require.NoError(t, manager.Lock(true))
	assert.Equal(t, models.SessionLocked, manager.State())

	_, err = manager.Passphrase()
	assert.ErrorIs(t, err, models.ErrSessionLocked)

	// Wrong passphrase keeps it locked.
	assert.ErrorIs(t, manager.Unlock("wrong"), models.ErrAuthentication)
	assert.Equal(t, models.SessionLocked, manager.State())

	require.NoError(t, manager.Unlock(testPassphrase))
	assert.Equal(t, models.SessionUnlocked, manager.State())

	passphrase, err := manager.Passphrase()
	require.NoError(t, err)
	assert.Equal(t, testPassphrase, passphrase)
}

func TestManager_InvalidTransitions(t *testing.T) {
	manager, _, _ := newTestManager(t)

	assert.Error(t, manager.Lock(true))
	assert.Error(t, manager.Unlock(testPassphrase))

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	// Unlocking an already-unlocked session is a state error.
	assert.Error(t, manager.Unlock(testPassphrase))

	// Logout from any state is fine.
	require.NoError(t, manager.Logout())
	assert.NoError(t, manager.Logout())
}

func TestManager_IdleAutoLock(t *testing.T) {
	manager, _, clock := newTestManager(t)

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	// Activity keeps the session alive.
	clock.advance(4 * time.Minute)
	manager.Touch()
	clock.advance(4 * time.Minute)
	assert.False(t, manager.CheckIdle())
	assert.Equal(t, models.SessionUnlocked, manager.State())

	// Past the deadline the next access locks.
	clock.advance(5 * time.Minute)
	_, err = manager.Passphrase()
	assert.ErrorIs(t, err, models.ErrSessionLocked)
	assert.Equal(t, models.SessionLocked, manager.State())

	events := manager.Events()
	assert.Equal(t, models.AuditAutoLock, events[0].Type)
}

func TestManager_CheckIdleSweep(t *testing.T) {
	manager, _, clock := newTestManager(t)

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	assert.False(t, manager.CheckIdle())

	clock.advance(6 * time.Minute)
	assert.True(t, manager.CheckIdle())
	assert.Equal(t, models.SessionLocked, manager.State())

	// Second sweep is a no-op.
	assert.False(t, manager.CheckIdle())
}

func TestManager_AutoLockDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.AutoLock = false
	cfg.Session.IdleTimeout = time.Minute

	manager := NewManager(creds.NewMockStore(), nil, cfg, events.Discard())
	clock := &fakeClock{t: time.Now()}
	manager.now = clock.now

	require.NoError(t, manager.Register(testOwner, testPassphrase))
	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	clock.advance(time.Hour)
	assert.False(t, manager.CheckIdle())

	_, err = manager.Passphrase()
	assert.NoError(t, err)
}

func TestManager_DemoSessionPurgesOnLogout(t *testing.T) {
	manager, purger, _ := newTestManager(t)

	session, err := manager.LoginDemo("demo@example.com", "demo passphrase")
	require.NoError(t, err)
	assert.True(t, session.Demo)

	require.NoError(t, manager.Logout())
	assert.Equal(t, 3, purger.purged["demo@example.com"])

	// A purge audit event was recorded.
	var sawPurge bool
	for _, e := range manager.Events() {
		if e.Type == models.AuditPurge {
			sawPurge = true
		}
	}
	assert.True(t, sawPurge)
}

func TestManager_RegularLogoutDoesNotPurge(t *testing.T) {
	manager, purger, _ := newTestManager(t)

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)
	require.NoError(t, manager.Logout())

	assert.Empty(t, purger.purged)
}

func TestManager_RiskScore(t *testing.T) {
	manager, _, clock := newTestManager(t)

	// Quiet baseline.
	assert.InDelta(t, 1.0, manager.RiskScore(), 1e-9)

	_, _ = manager.Login(testOwner, "wrong")
	_, _ = manager.Login(testOwner, "wrong again")
	manager.RecordEvent(models.AuditDecryptFailed, "bad payload")

	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)
	require.NoError(t, manager.Lock(true))

	// 1 + 1.5*2 + 2*1 + 0.5*1 = 6.5
	assert.InDelta(t, 6.5, manager.RiskScore(), 1e-9)

	// Events age out of the trailing window.
	clock.advance(25 * time.Hour)
	assert.InDelta(t, 1.0, manager.RiskScore(), 1e-9)
}

func TestManager_RiskScoreCapped(t *testing.T) {
	manager, _, _ := newTestManager(t)

	for i := 0; i < 20; i++ {
		_, _ = manager.Login(testOwner, "wrong")
	}
	assert.InDelta(t, 10.0, manager.RiskScore(), 1e-9)
}

func TestManager_AuditRingBounded(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Vault.AuditLogCap = 5

	manager := NewManager(creds.NewMockStore(), nil, cfg, events.Discard())

	for i := 0; i < 10; i++ {
		manager.RecordEvent(models.AuditEncrypt, "file stored")
	}

	assert.Len(t, manager.Events(), 5)
}

func TestManager_RotatePassphrase(t *testing.T) {
	store := creds.NewMockStore()
	manager := NewManager(store, &fakePurger{}, config.DefaultConfig(), events.Discard())
	require.NoError(t, manager.Register(testOwner, testPassphrase))
	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	const newPassphrase = "entirely new passphrase"
	rotator := &fakeRotator{count: 2}

	count, err := manager.RotatePassphrase(context.Background(), rotator, newPassphrase)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{testPassphrase + " -> " + newPassphrase}, rotator.calls)

	// The verifier matches only the new passphrase.
	account, err := store.Load(testOwner)
	require.NoError(t, err)
	assert.True(t, account.Verifier.Verify(newPassphrase))
	assert.False(t, account.Verifier.Verify(testPassphrase))

	// The resident passphrase was swapped in place.
	resident, err := manager.Passphrase()
	require.NoError(t, err)
	assert.Equal(t, newPassphrase, resident)

	var sawRotation bool
	for _, e := range manager.Events() {
		if e.Type == models.AuditRotation {
			sawRotation = true
		}
	}
	assert.True(t, sawRotation)
}

func TestManager_RotatePassphraseRestoresVerifierOnFailure(t *testing.T) {
	store := creds.NewMockStore()
	manager := NewManager(store, &fakePurger{}, config.DefaultConfig(), events.Discard())
	require.NoError(t, manager.Register(testOwner, testPassphrase))
	_, err := manager.Login(testOwner, testPassphrase)
	require.NoError(t, err)

	rotator := &fakeRotator{err: errors.New("payload corrupted")}

	_, err = manager.RotatePassphrase(context.Background(), rotator, "entirely new passphrase")
	require.Error(t, err)

	// Unlock and payloads stay keyed to the old passphrase together.
	account, err := store.Load(testOwner)
	require.NoError(t, err)
	assert.True(t, account.Verifier.Verify(testPassphrase))
	assert.False(t, account.Verifier.Verify("entirely new passphrase"))

	resident, err := manager.Passphrase()
	require.NoError(t, err)
	assert.Equal(t, testPassphrase, resident)
}

func TestManager_RotatePassphraseDemoSkipsAccount(t *testing.T) {
	store := creds.NewMockStore()
	manager := NewManager(store, &fakePurger{}, config.DefaultConfig(), events.Discard())

	_, err := manager.LoginDemo("demo@example.com", "demo passphrase")
	require.NoError(t, err)

	rotator := &fakeRotator{count: 1}
	count, err := manager.RotatePassphrase(context.Background(), rotator, "fresh demo passphrase")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// No account is created for a demo session.
	_, err = store.Load("demo@example.com")
	assert.ErrorIs(t, err, creds.ErrAccountNotFound)
}

func TestManager_RotatePassphraseValidation(t *testing.T) {
	manager, _, _ := newTestManager(t)
	rotator := &fakeRotator{count: 1}

	// Weak replacement passphrases are rejected before anything runs.
	_, err := manager.RotatePassphrase(context.Background(), rotator, "short")
	assert.ErrorIs(t, err, models.ErrWeakPassphrase)

	// So is rotating without an unlocked session.
	_, err = manager.RotatePassphrase(context.Background(), rotator, "entirely new passphrase")
	assert.ErrorIs(t, err, models.ErrNotUnlocked)

	assert.Empty(t, rotator.calls)
}
