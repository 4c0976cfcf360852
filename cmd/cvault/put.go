package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/models"
	"github.com/cybervault/cybervault/internal/services/vault"
)

var putCmd = &cobra.Command{
	Use:   "put <file>...",
	Short: "Encrypt files into the vault",
	Example: `  cvault put report.pdf
  cvault put *.jpg --tag photos --tag 2026`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPut,
}

var putTags []string

func init() {
	rootCmd.AddCommand(putCmd)
	addPassphraseFlag(putCmd)
	putCmd.Flags().StringArrayVarP(&putTags, "tag", "t", nil,
		"Tag to attach (repeatable)")
}

func runPut(cmd *cobra.Command, args []string) error {
	ownerID, passphrase, err := openSession()
	if err != nil {
		return err
	}

	if sess := app.Session.Current(); sess != nil && sess.Demo && len(args) > 1 {
		return fmt.Errorf("demo sessions hold a single file")
	}

	var stored []*models.FileRecord
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		name := filepath.Base(path)
		record, err := app.Vault.Put(ownerID, passphrase, vault.PutInput{
			Name: name,
			Type: mime.TypeByExtension(filepath.Ext(name)),
			Data: data,
			Tags: putTags,
		})
		if err != nil {
			return err
		}

		app.Session.RecordEvent(models.AuditEncrypt, name)
		stored = append(stored, record)

		if !jsonOutput {
			printSuccess("Stored %s (%s) as %s", record.Name, formatBytes(record.Size), record.ID)
		}
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"stored":  stored,
		})
	}
	return nil
}
