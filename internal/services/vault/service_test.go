package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/storage"
)

const (
	testOwner      = "alice@example.com"
	testPassphrase = "correct horse battery staple"
)

type testEnv struct {
	service *Service
	index   *index.MockStore
	blobs   *storage.MockStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	indexStore := index.NewMockStore()
	blobStore := storage.NewMockStore()
	service := NewService(crypto.NewProvider(), indexStore, blobStore, 1<<20, events.Discard())

	return &testEnv{service: service, index: indexStore, blobs: blobStore}
}

func (env *testEnv) put(t *testing.T, name string, data []byte, tags ...string) *models.FileRecord {
	t.Helper()

	record, err := env.service.Put(testOwner, testPassphrase, PutInput{
		Name: name,
		Type: "text/plain",
		Data: data,
		Tags: tags,
	})
	require.NoError(t, err)
	return record
}

func TestService_PutGet(t *testing.T) {
	env := newTestEnv(t)

	data := []byte("the quick brown fox")
	record := env.put(t, "notes.txt", data, "work")

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, int64(len(data)), record.Size)
	assert.Len(t, record.Salt, models.SaltSize)
	assert.Len(t, record.IV, models.NonceSize)
	assert.Equal(t, []string{"work"}, record.Tags)

	got, plaintext, err := env.service.Get(testOwner, testPassphrase, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, data, plaintext)
}

func TestService_PutValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		input PutInput
	}{
		{"empty name", PutInput{Name: "  ", Data: []byte("x")}},
		{"empty data", PutInput{Name: "a.txt"}},
		{"over size limit", PutInput{Name: "big.bin", Data: make([]byte, 1<<20+1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Put(testOwner, testPassphrase, tt.input)
			assert.Error(t, err)
		})
	}
}

func TestService_PutUniqueSaltPerRecord(t *testing.T) {
	env := newTestEnv(t)

	a := env.put(t, "a.txt", []byte("same content"))
	b := env.put(t, "b.txt", []byte("same content"))

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.IV, b.IV)
	assert.Equal(t, a.Checksum, b.Checksum)
}

func TestService_GetWrongPassphrase(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "secret.txt", []byte("hidden"))

	_, _, err := env.service.Get(testOwner, "wrong passphrase", record.ID)

	var decryptErr *models.DecryptError
	require.ErrorAs(t, err, &decryptErr)
	assert.ErrorIs(t, err, models.ErrAuthentication)
	assert.Equal(t, record.ID, decryptErr.RecordID)
}

func TestService_GetMissingPayload(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "gone.txt", []byte("data"))

	env.blobs.Drop(record.Payload.Ref)

	_, _, err := env.service.Get(testOwner, testPassphrase, record.ID)

	var missingErr *models.MissingPayloadError
	require.ErrorAs(t, err, &missingErr)
	assert.Equal(t, record.Payload.Ref, missingErr.Ref)
}

func TestService_GetChecksumMismatch(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "tampered.txt", []byte("original"))

	// Corrupt the stored checksum so decryption succeeds but the
	// plaintext no longer matches what the index claims.
	record.Checksum = "0000000000000000000000000000000000000000000000000000000000000000"
	require.NoError(t, env.index.Upsert(testOwner, record))

	_, _, err := env.service.Get(testOwner, testPassphrase, record.ID)

	var integrityErr *models.IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.NotEqual(t, integrityErr.Expected, integrityErr.Actual)
}

func TestService_GetUnknownRecord(t *testing.T) {
	env := newTestEnv(t)
	env.put(t, "a.txt", []byte("x"))

	_, _, err := env.service.Get(testOwner, testPassphrase, "no-such-id")
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestService_Delete(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "a.txt", []byte("x"))

	require.NoError(t, env.service.Delete(testOwner, record.ID))

	_, _, err := env.service.Get(testOwner, testPassphrase, record.ID)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)

	exists, err := env.blobs.Exists(record.Payload.Ref)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestService_List(t *testing.T) {
	env := newTestEnv(t)
	env.put(t, "report.pdf", []byte("a"), "work")
	env.put(t, "photo.jpg", []byte("b"), "personal")
	env.put(t, "budget.xlsx", []byte("c"), "work", "finance")

	all, err := env.service.List(testOwner, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	work, err := env.service.List(testOwner, ListFilter{Tag: "work"})
	require.NoError(t, err)
	assert.Len(t, work, 2)

	byName, err := env.service.List(testOwner, ListFilter{NameContains: "PHOTO"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "photo.jpg", byName[0].Name)
}

func TestService_SetTags(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "a.txt", []byte("x"), "old")

	updated, err := env.service.SetTags(testOwner, record.ID, []string{"New", "new", "archive"})
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "new"}, updated.Tags)
}

func TestService_Scan(t *testing.T) {
	env := newTestEnv(t)
	good := env.put(t, "good.txt", []byte("fine"))
	missing := env.put(t, "missing.txt", []byte("gone"))
	corrupt := env.put(t, "corrupt.txt", []byte("bad"))

	env.blobs.Drop(missing.Payload.Ref)

	// Flip a ciphertext byte so the AEAD tag no longer verifies.
	ciphertext, err := env.blobs.Read(corrupt.Payload.Ref)
	require.NoError(t, err)
	ciphertext[0] ^= 0xff
	require.NoError(t, env.blobs.Write(corrupt.Payload.Ref, ciphertext))

	report, err := env.service.Scan(context.Background(), testOwner, testPassphrase)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Totals.Files)
	assert.Equal(t, 1, report.Totals.Verified)
	assert.Equal(t, 1, report.Totals.Failed)
	assert.Equal(t, 1, report.Totals.Missing)
	assert.False(t, report.CompletedAt.Before(report.StartedAt))

	statuses := map[string]models.ScanStatus{}
	for _, r := range report.Results {
		statuses[r.RecordID] = r.Status
	}
	assert.Equal(t, models.ScanVerified, statuses[good.ID])
	assert.Equal(t, models.ScanMissing, statuses[missing.ID])
	assert.Equal(t, models.ScanFailed, statuses[corrupt.ID])
}

func TestService_ScanEmptyVault(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.service.Scan(context.Background(), testOwner, testPassphrase)
	require.NoError(t, err)
	assert.Zero(t, report.Totals.Files)
}

func TestService_Rotate(t *testing.T) {
	env := newTestEnv(t)
	a := env.put(t, "a.txt", []byte("alpha"))
	b := env.put(t, "b.txt", []byte("beta"))

	const newPassphrase = "a brand new passphrase"

	count, err := env.service.Rotate(context.Background(), testOwner, testPassphrase, newPassphrase)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Old passphrase no longer decrypts anything.
	_, _, err = env.service.Get(testOwner, testPassphrase, a.ID)
	assert.ErrorIs(t, err, models.ErrAuthentication)

	// New passphrase decrypts both, content intact.
	_, plaintext, err := env.service.Get(testOwner, newPassphrase, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), plaintext)

	_, plaintext, err = env.service.Get(testOwner, newPassphrase, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("beta"), plaintext)

	// Salts were refreshed.
	rotated, err := env.service.List(testOwner, ListFilter{})
	require.NoError(t, err)
	for _, r := range rotated {
		assert.NotEqual(t, a.Salt, r.Salt)
		assert.NotEqual(t, b.Salt, r.Salt)
	}
}

func TestService_RotateWrongOldPassphrase(t *testing.T) {
	env := newTestEnv(t)
	record := env.put(t, "a.txt", []byte("alpha"))

	_, err := env.service.Rotate(context.Background(), testOwner, "not the passphrase", "new one")

	var rotationErr *models.RotationError
	require.ErrorAs(t, err, &rotationErr)
	assert.Equal(t, record.ID, rotationErr.RecordID)

	// Vault still readable under the original passphrase.
	_, plaintext, err := env.service.Get(testOwner, testPassphrase, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), plaintext)
}

func TestService_RotateAbortsOnMissingPayload(t *testing.T) {
	env := newTestEnv(t)
	a := env.put(t, "a.txt", []byte("alpha"))
	b := env.put(t, "b.txt", []byte("beta"))

	env.blobs.Drop(b.Payload.Ref)

	_, err := env.service.Rotate(context.Background(), testOwner, testPassphrase, "new one")

	var rotationErr *models.RotationError
	require.ErrorAs(t, err, &rotationErr)
	assert.Equal(t, b.ID, rotationErr.RecordID)

	// No staged blobs left: only the surviving original payload remains.
	refs, listErr := env.blobs.List()
	require.NoError(t, listErr)
	assert.Equal(t, []string{a.Payload.Ref}, refs)

	_, plaintext, err := env.service.Get(testOwner, testPassphrase, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), plaintext)
}

func TestService_RotateAbortsWhenStagingFails(t *testing.T) {
	env := newTestEnv(t)
	env.put(t, "a.txt", []byte("alpha"))

	env.blobs.FailWrite = errors.New("disk full")

	_, err := env.service.Rotate(context.Background(), testOwner, testPassphrase, "new one")

	var rotationErr *models.RotationError
	require.ErrorAs(t, err, &rotationErr)

	env.blobs.FailWrite = nil
	_, plaintext, err := env.service.Get(testOwner, testPassphrase, func() string {
		records, listErr := env.service.List(testOwner, ListFilter{})
		require.NoError(t, listErr)
		return records[0].ID
	}())
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), plaintext)
}

func TestService_RotateCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.put(t, "a.txt", []byte("alpha"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.service.Rotate(ctx, testOwner, testPassphrase, "new one")
	assert.ErrorIs(t, err, context.Canceled)
}
