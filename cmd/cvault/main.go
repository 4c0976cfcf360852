package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/config"
	"github.com/cybervault/cybervault/internal/creds"
	"github.com/cybervault/cybervault/internal/crypto"
	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/index"
	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/services/backup"
	"github.com/cybervault/cybervault/internal/services/biometric"
	"github.com/cybervault/cybervault/internal/services/session"
	"github.com/cybervault/cybervault/internal/services/vault"
	"github.com/cybervault/cybervault/internal/storage"
)

var (
	cfgPath    string
	jsonOutput bool
	verbose    bool
	owner      string
	demoMode   bool

	cfg    *config.Config
	logger *events.Logger
	app    *App
)

var rootCmd = &cobra.Command{
	Use:   "cvault",
	Short: "Local encrypted file vault",
	Long: `CyberVault keeps files encrypted at rest with keys derived from your
passphrase. Nothing leaves your machine and nothing readable is ever
written to disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewLoader(cfgPath).Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, err = events.NewLogger(&cfg.Log)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}

		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("prepare data directories: %w", err)
		}

		app, err = newApp(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app == nil {
			return nil
		}
		if app.Session.State() != models.SessionLoggedOut {
			if err := app.Session.Logout(); err != nil {
				logger.WithError(err).Warn("Session teardown failed")
			}
		}
		return app.Close()
	},
}

// App wires the stores and services for one invocation.
type App struct {
	Crypto    crypto.Provider
	Index     index.Store
	Blobs     storage.BlobStore
	Vault     *vault.Service
	Backup    *backup.Service
	Biometric *biometric.Service
	Accounts  creds.Store
	Session   *session.Manager
}

func newApp(cfg *config.Config, logger *events.Logger) (*App, error) {
	provider := crypto.NewProvider()

	var indexStore index.Store
	var err error
	switch cfg.Storage.IndexDriver {
	case "json":
		indexStore, err = index.NewJSONStore(cfg.Storage.IndexDir, logger)
	default:
		indexStore, err = index.NewSQLiteStore(cfg.Storage.IndexDir+"/vault.db", logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open index store: %w", err)
	}

	blobStore, err := storage.NewLocalStore(cfg.Storage.BlobDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	blobStore.SetMaxBlobSize(cfg.Storage.MaxFileSize + 1024)

	profileStore, err := biometric.NewFileProfileStore(cfg.Storage.CredsDir)
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}

	accountStore, err := creds.NewFileStore(cfg.Storage.CredsDir)
	if err != nil {
		return nil, fmt.Errorf("open account store: %w", err)
	}

	vaultService := vault.NewService(provider, indexStore, blobStore, cfg.Storage.MaxFileSize, logger)

	return &App{
		Crypto:    provider,
		Index:     indexStore,
		Blobs:     blobStore,
		Vault:     vaultService,
		Backup:    backup.NewService(provider, indexStore, blobStore, logger),
		Biometric: biometric.NewService(profileStore, &cfg.Biometric, logger),
		Accounts:  accountStore,
		Session:   session.NewManager(accountStore, vaultService, cfg, logger),
	}, nil
}

// Close releases store handles.
func (a *App) Close() error {
	return a.Index.Close()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&owner, "owner", "o", "",
		"Vault owner (defaults to CVAULT_OWNER)")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false,
		"Run against a throwaway demo vault that is purged on exit")
}

// resolveOwner returns the owner from the flag or environment.
func resolveOwner() (string, error) {
	if owner != "" {
		return owner, nil
	}
	if env := os.Getenv("CVAULT_OWNER"); env != "" {
		return env, nil
	}
	if demoMode {
		return "demo", nil
	}
	return "", fmt.Errorf("no owner: use --owner or set CVAULT_OWNER")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			printJSON(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
		} else {
			printError("%v", err)
		}
		os.Exit(1)
	}
}
