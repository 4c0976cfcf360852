package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/models"
)

var getCmd = &cobra.Command{
	Use:   "get <record-id>",
	Short: "Decrypt a file from the vault",
	Long: `Get decrypts a stored file and verifies its checksum. A checksum
mismatch means the stored data was corrupted or tampered with; nothing
is written and the command fails.`,
	Example: `  cvault get 4f7c... --out ./report.pdf
  cvault get 4f7c... --stdout > report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

var (
	getOut    string
	getStdout bool
)

func init() {
	rootCmd.AddCommand(getCmd)
	addPassphraseFlag(getCmd)
	getCmd.Flags().StringVar(&getOut, "out", "", "Output path (defaults to the stored name)")
	getCmd.Flags().BoolVar(&getStdout, "stdout", false, "Write plaintext to stdout")
}

func runGet(cmd *cobra.Command, args []string) error {
	ownerID, passphrase, err := openSession()
	if err != nil {
		return err
	}

	record, plaintext, err := app.Vault.Get(ownerID, passphrase, args[0])
	if err != nil {
		var decryptErr *models.DecryptError
		var integrityErr *models.IntegrityError
		switch {
		case errors.As(err, &decryptErr):
			app.Session.RecordEvent(models.AuditDecryptFailed, decryptErr.Name)
		case errors.As(err, &integrityErr):
			app.Session.RecordEvent(models.AuditDecryptFailed, integrityErr.Name)
			printWarning("Integrity check failed: %s was modified after encryption", integrityErr.Name)
		}
		return err
	}

	app.Session.RecordEvent(models.AuditDecrypt, record.Name)

	if getStdout {
		_, err := os.Stdout.Write(plaintext)
		return err
	}

	out := getOut
	if out == "" {
		out = record.Name
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Join(".", out)), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, plaintext, 0600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"record":  record,
			"path":    out,
		})
	} else {
		printSuccess("Decrypted %s to %s (%s)", record.Name, out, formatBytes(record.Size))
	}
	return nil
}
