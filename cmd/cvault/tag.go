package main

import (
	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:     "tag <record-id> [tag]...",
	Short:   "Replace a file's tags",
	Example: `  cvault tag 4f7c... work finance`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runTag,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	addPassphraseFlag(tagCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	record, err := app.Vault.SetTags(ownerID, args[0], args[1:])
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"record":  record,
		})
	} else {
		printSuccess("Tags for %s: %v", record.Name, record.Tags)
	}
	return nil
}
