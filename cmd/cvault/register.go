package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a vault account",
	Long: `Register stores a verifier for your passphrase. The passphrase itself
is never written anywhere; if you lose it, your files are gone.`,
	Example: `  cvault register --owner alice@example.com`,
	RunE:    runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	addPassphraseFlag(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	ownerID, err := resolveOwner()
	if err != nil {
		return err
	}

	passphrase, err := getPassphrase("Choose a passphrase: ")
	if err != nil {
		return err
	}

	confirm, err := getPassphraseConfirm("Confirm passphrase: ", passphrase)
	if err != nil {
		return err
	}
	if confirm != passphrase {
		return fmt.Errorf("passphrases do not match")
	}

	if err := app.Session.Register(ownerID, passphrase); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"owner":   ownerID,
		})
	} else {
		printSuccess("Account registered for %s", ownerID)
		printWarning("There is no passphrase recovery. Keep it safe.")
	}
	return nil
}
