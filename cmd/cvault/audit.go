package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/events"
	"github.com/cybervault/cybervault/internal/models"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify the integrity of every stored file",
	Long: `Audit decrypts every file in the vault and recomputes its checksum.
Corrupted and missing payloads are reported per file; one bad file never
stops the scan.`,
	RunE: runAudit,
}

var auditOut string

func init() {
	rootCmd.AddCommand(auditCmd)
	addPassphraseFlag(auditCmd)
	auditCmd.Flags().StringVar(&auditOut, "out", "",
		"Write the full report as JSON to this path")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ownerID, passphrase, err := openSession()
	if err != nil {
		return err
	}

	ctx := events.WithOwner(events.WithLogger(context.Background(), logger), ownerID)
	report, err := app.Vault.Scan(ctx, ownerID, passphrase)
	if err != nil {
		return err
	}

	for _, result := range report.Results {
		if result.Status != models.ScanVerified {
			app.Session.RecordEvent(models.AuditDecryptFailed,
				fmt.Sprintf("audit: %s (%s)", result.Name, result.Status))
		}
	}

	if auditOut != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(auditOut, data, 0600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		printInfo("Report written to %s", auditOut)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": report.Totals.Failed == 0 && report.Totals.Missing == 0,
			"report":  report,
		})
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTATUS\tDETAIL")
		for _, result := range report.Results {
			fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, result.Status, result.Error)
		}
		w.Flush()

		fmt.Println()
		if report.Totals.Failed == 0 && report.Totals.Missing == 0 {
			printSuccess("All %d files verified (%s)",
				report.Totals.Verified, formatBytes(report.Totals.SizeBytes))
		} else {
			printWarning("%d verified, %d failed, %d missing",
				report.Totals.Verified, report.Totals.Failed, report.Totals.Missing)
		}
	}

	if report.Totals.Failed > 0 || report.Totals.Missing > 0 {
		return fmt.Errorf("integrity scan found problems")
	}
	return nil
}
