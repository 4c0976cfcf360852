package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/creds"
	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/services/backup"
	"github.com/cybervault/cybervault/internal/services/session"
	"github.com/cybervault/cybervault/internal/services/vault"
	"github.com/cybervault/cybervault/internal/storage"
	"github.com/cybervault/cybervault/test/testutil"
)

const (
	owner      = "alice@example.com"
	passphrase = "correct horse battery staple"
)

type harness struct {
	vault   *vault.Service
	backup  *backup.Service
	session *session.Manager
}

// newHarness wires real file-backed stores, no mocks.
func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testutil.TempConfig(t)
	logger := testutil.NewTestLogger()
	provider := crypto.NewProvider()

	indexStore, err := index.NewJSONStore(cfg.Storage.IndexDir, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = indexStore.Close() })

	blobStore, err := storage.NewLocalStore(cfg.Storage.BlobDir, logger)
	require.NoError(t, err)

	accountStore, err := creds.NewFileStore(cfg.Storage.CredsDir)
	require.NoError(t, err)

	vaultService := vault.NewService(provider, indexStore, blobStore, cfg.Storage.MaxFileSize, logger)

	return &harness{
		vault:   vaultService,
		backup:  backup.NewService(provider, indexStore, blobStore, logger),
		session: session.NewManager(accountStore, vaultService, cfg, logger),
	}
}

func TestFullVaultLifecycle(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.session.Register(owner, passphrase))
	_, err := h.session.Login(owner, passphrase)
	require.NoError(t, err)

	resident, err := h.session.Passphrase()
	require.NoError(t, err)

	// Store the fixture set.
	ids := make(map[string]string)
	for _, f := range testutil.SampleFiles {
		record, err := h.vault.Put(owner, resident, vault.PutInput{
			Name: f.Name,
			Type: f.Type,
			Data: f.Data,
			Tags: []string{"fixtures"},
		})
		require.NoError(t, err)
		ids[f.Name] = record.ID
	}

	records, err := h.vault.List(owner, vault.ListFilter{Tag: "fixtures"})
	require.NoError(t, err)
	assert.Len(t, records, len(testutil.SampleFiles))

	// Every file decrypts back to its original bytes.
	for _, f := range testutil.SampleFiles {
		_, plaintext, err := h.vault.Get(owner, resident, ids[f.Name])
		require.NoError(t, err, f.Name)
		assert.Equal(t, f.Data, plaintext, f.Name)
	}

	// A clean vault scans clean.
	report, err := h.vault.Scan(context.Background(), owner, resident)
	require.NoError(t, err)
	assert.Equal(t, len(testutil.SampleFiles), report.Totals.Verified)
	assert.Zero(t, report.Totals.Failed)
	assert.Zero(t, report.Totals.Missing)

	require.NoError(t, h.session.Logout())
}

func TestBackupSurvivesPurge(t *testing.T) {
	h := newHarness(t)
	const backupPass = "container passphrase"

	for _, f := range testutil.SampleFiles {
		_, err := h.vault.Put(owner, passphrase, vault.PutInput{
			Name: f.Name, Type: f.Type, Data: f.Data,
		})
		require.NoError(t, err)
	}

	container, err := h.backup.Export(owner, backupPass)
	require.NoError(t, err)

	purged, err := h.vault.PurgeOwner(owner)
	require.NoError(t, err)
	assert.Equal(t, len(testutil.SampleFiles), purged)

	records, err := h.vault.List(owner, vault.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)

	result, err := h.backup.Restore(owner, backupPass, container)
	require.NoError(t, err)
	assert.Equal(t, len(testutil.SampleFiles), result.Restored)

	// Restored payloads decrypt under the original vault passphrase.
	records, err = h.vault.List(owner, vault.ListFilter{})
	require.NoError(t, err)
	require.Len(t, records, len(testutil.SampleFiles))
	for _, r := range records {
		_, plaintext, err := h.vault.Get(owner, passphrase, r.ID)
		require.NoError(t, err, r.Name)
		assert.NotEmpty(t, plaintext)
	}
}

func TestRotationThenBackupRoundTrip(t *testing.T) {
	h := newHarness(t)
	const (
		newPassphrase = "entirely new passphrase"
		backupPass    = "container passphrase"
	)

	record, err := h.vault.Put(owner, passphrase, vault.PutInput{
		Name: "secret.txt", Data: []byte("rotate me"),
	})
	require.NoError(t, err)

	count, err := h.vault.Rotate(context.Background(), owner, passphrase, newPassphrase)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, _, err = h.vault.Get(owner, passphrase, record.ID)
	assert.ErrorIs(t, err, models.ErrAuthentication)

	// A backup taken after rotation restores files keyed to the new
	// passphrase.
	container, err := h.backup.Export(owner, backupPass)
	require.NoError(t, err)

	const otherOwner = "bob@example.com"
	_, err = h.backup.Restore(otherOwner, backupPass, container)
	require.NoError(t, err)

	records, err := h.vault.List(otherOwner, vault.ListFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	_, plaintext, err := h.vault.Get(otherOwner, newPassphrase, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("rotate me"), plaintext)
}

func TestDemoSessionLeavesNoTrace(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.LoginDemo("demo@example.com", "demo passphrase")
	require.NoError(t, err)

	resident, err := h.session.Passphrase()
	require.NoError(t, err)

	_, err = h.vault.Put("demo@example.com", resident, vault.PutInput{
		Name: "scratch.txt", Data: []byte("temporary"),
	})
	require.NoError(t, err)

	require.NoError(t, h.session.Logout())

	records, err := h.vault.List("demo@example.com", vault.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
