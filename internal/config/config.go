package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Storage paths
	Storage StorageConfig `json:"storage"`

	// Vault behavior
	Vault VaultConfig `json:"vault"`

	// Session and auto-lock behavior
	Session SessionConfig `json:"session"`

	// Biometric capture behavior
	Biometric BiometricConfig `json:"biometric"`

	// Logging
	Log LogConfig `json:"log"`
}

// StorageConfig for local file paths.
type StorageConfig struct {
	DataDir     string `json:"data_dir"`      // Base directory for all data
	IndexDir    string `json:"index_dir"`     // Vault index storage
	BlobDir     string `json:"blob_dir"`      // Encrypted payload blobs
	CredsDir    string `json:"creds_dir"`     // Biometric credential store
	IndexDriver string `json:"index_driver"`  // sqlite or json
	MaxFileSize int64  `json:"max_file_size"` // Max file size in bytes
}

// VaultConfig for encryption and audit behavior.
type VaultConfig struct {
	MinPassphraseLen int `json:"min_passphrase_len"`
	AuditLogCap      int `json:"audit_log_cap"`
}

// SessionConfig for auto-lock behavior.
type SessionConfig struct {
	AutoLock    bool          `json:"auto_lock"`
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// BiometricConfig for capture loops.
type BiometricConfig struct {
	PollInterval   time.Duration `json:"poll_interval"`   // Sample poll cadence
	CaptureTimeout time.Duration `json:"capture_timeout"` // Soft cap on sample collection
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level     string `json:"level"`  // debug, info, warn, error
	Format    string `json:"format"` // text, json
	File      string `json:"file"`   // Log file path (empty = stdout)
	Color     bool   `json:"color"`
	Timestamp bool   `json:"timestamp"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".cvault"

	return &Config{
		Storage: StorageConfig{
			DataDir:     dataDir,
			IndexDir:    filepath.Join(dataDir, "index"),
			BlobDir:     filepath.Join(dataDir, "blobs"),
			CredsDir:    filepath.Join(dataDir, "creds"),
			IndexDriver: "sqlite",
			MaxFileSize: 100 * 1024 * 1024, // 100MB
		},
		Vault: VaultConfig{
			MinPassphraseLen: 8,
			AuditLogCap:      200,
		},
		Session: SessionConfig{
			AutoLock:    true,
			IdleTimeout: 5 * time.Minute,
		},
		Biometric: BiometricConfig{
			PollInterval:   time.Second,
			CaptureTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level:     "info",
			Format:    "text",
			File:      "",
			Color:     true,
			Timestamp: true,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	if c.Storage.MaxFileSize <= 0 {
		return errors.New("storage.max_file_size must be positive")
	}

	switch c.Storage.IndexDriver {
	case "sqlite", "json":
	default:
		return fmt.Errorf("invalid index driver: %s", c.Storage.IndexDriver)
	}

	if c.Vault.MinPassphraseLen < 8 {
		return errors.New("vault.min_passphrase_len must be at least 8")
	}

	if c.Vault.AuditLogCap <= 0 {
		return errors.New("vault.audit_log_cap must be positive")
	}

	if c.Session.AutoLock && c.Session.IdleTimeout <= 0 {
		return errors.New("session.idle_timeout must be positive when auto-lock is enabled")
	}

	if c.Biometric.PollInterval <= 0 {
		return errors.New("biometric.poll_interval must be positive")
	}

	if c.Biometric.CaptureTimeout <= 0 {
		return errors.New("biometric.capture_timeout must be positive")
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.IndexDir,
		c.Storage.BlobDir,
		c.Storage.CredsDir,
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
