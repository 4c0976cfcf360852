package testutil

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cybervault/cybervault/internal/config"
	"github.com/cybervault/cybervault/internal/events"
)

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() *events.Logger {
	return events.Discard()
}

// TempConfig returns a config rooted in a per-test temp directory.
func TempConfig(t *testing.T) *config.Config {
	t.Helper()

	dataDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.DataDir = dataDir
	cfg.Storage.IndexDir = dataDir + "/index"
	cfg.Storage.BlobDir = dataDir + "/blobs"
	cfg.Storage.CredsDir = dataDir + "/creds"
	cfg.Storage.IndexDriver = "json"
	cfg.Session.IdleTimeout = time.Minute
	cfg.Biometric.PollInterval = time.Millisecond
	cfg.Biometric.CaptureTimeout = time.Second

	require.NoError(t, cfg.EnsureDirectories())
	return cfg
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(t *testing.T, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}
