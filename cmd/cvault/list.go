package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/services/vault"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List vault contents",
	Example: `  cvault list
  cvault list --tag work --name report`,
	RunE: runList,
}

var (
	listTag  string
	listType string
	listName string
)

func init() {
	rootCmd.AddCommand(listCmd)
	addPassphraseFlag(listCmd)
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by MIME type")
	listCmd.Flags().StringVar(&listName, "name", "", "Filter by name substring")
}

func runList(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	records, err := app.Vault.List(ownerID, vault.ListFilter{
		Tag:          listTag,
		Type:         listType,
		NameContains: listName,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"count":   len(records),
			"records": records,
		})
		return nil
	}

	if len(records) == 0 {
		printInfo("Vault is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tUPLOADED\tTAGS")
	var total int64
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
			r.ID, r.Name, formatBytes(r.Size),
			r.UploadedAt.Local().Format("2006-01-02 15:04"), r.Tags)
		total += r.Size
	}
	w.Flush()

	fmt.Printf("\n%d files, %s\n", len(records), formatBytes(total))
	return nil
}
