package main

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:     "rm <record-id>...",
	Aliases: []string{"delete"},
	Short:   "Delete files from the vault",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runRm,
}

func init() {
	rootCmd.AddCommand(rmCmd)
	addPassphraseFlag(rmCmd)
}

func runRm(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	for _, id := range args {
		if err := app.Vault.Delete(ownerID, id); err != nil {
			return err
		}
		if !jsonOutput {
			printSuccess("Deleted %s", id)
		}
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"deleted": args,
		})
	}
	return nil
}
