package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/models"
)

var backupCmd = &cobra.Command{
	Use:   "backup <output-file>",
	Short: "Export the vault to an encrypted container",
	Long: `Backup writes the whole vault into a single encrypted container file.
The backup passphrase protects the container and may differ from your
vault passphrase; both are needed to restore and read the files.`,
	Example: `  cvault backup vault-2026-08-29.cvb`,
	Args:    cobra.ExactArgs(1),
	RunE:    runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Merge an encrypted container into the vault",
	Long: `Restore merges a backup container into the vault. Files already
present (same name, size, and checksum) are skipped, so restoring the
same container twice changes nothing. A restore either completes fully
or leaves the vault untouched.`,
	Example: `  cvault restore vault-2026-08-29.cvb`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRestore,
}

var backupPassphraseFlag string

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	addPassphraseFlag(backupCmd)
	addPassphraseFlag(restoreCmd)
	backupCmd.Flags().StringVar(&backupPassphraseFlag, "backup-passphrase", "",
		"Container passphrase (will prompt if not provided)")
	restoreCmd.Flags().StringVar(&backupPassphraseFlag, "backup-passphrase", "",
		"Container passphrase (will prompt if not provided)")
}

func getBackupPassphrase() (string, error) {
	if backupPassphraseFlag != "" {
		return backupPassphraseFlag, nil
	}
	return promptPassphrase("Backup passphrase: ")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	backupPass, err := getBackupPassphrase()
	if err != nil {
		return err
	}

	container, err := app.Backup.Export(ownerID, backupPass)
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[0], container, 0600); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	app.Session.RecordEvent(models.AuditBackup, args[0])

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"path":    args[0],
			"size":    len(container),
		})
	} else {
		printSuccess("Backup written to %s (%s)", args[0], formatBytes(int64(len(container))))
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	backupPass, err := getBackupPassphrase()
	if err != nil {
		return err
	}

	container, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	result, err := app.Backup.Restore(ownerID, backupPass, container)
	if err != nil {
		return err
	}

	app.Session.RecordEvent(models.AuditRestore,
		fmt.Sprintf("%s: %d restored, %d skipped", args[0], result.Restored, result.Skipped))

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":  true,
			"restored": result.Restored,
			"skipped":  result.Skipped,
		})
	} else {
		printSuccess("Restored %d files, skipped %d already present", result.Restored, result.Skipped)
	}
	return nil
}
