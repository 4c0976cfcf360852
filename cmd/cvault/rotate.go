package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/events"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Change the vault passphrase",
	Long: `Rotate re-encrypts every file under a new passphrase with fresh salts.
The rotation is atomic: if anything fails, the vault stays readable
under the old passphrase.`,
	RunE: runRotate,
}

var rotateNewPassphrase string

func init() {
	rootCmd.AddCommand(rotateCmd)
	addPassphraseFlag(rotateCmd)
	rotateCmd.Flags().StringVar(&rotateNewPassphrase, "new-passphrase", "",
		"New vault passphrase (will prompt if not provided)")
}

func runRotate(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	newPass := rotateNewPassphrase
	if newPass == "" {
		newPass, err = promptPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassphrase("Confirm new passphrase: ")
		if err != nil {
			return err
		}
		if confirm != newPass {
			return fmt.Errorf("passphrases do not match")
		}
	}

	ctx, cancel := context.WithCancel(events.WithOwner(events.WithLogger(context.Background(), logger), ownerID))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			printWarning("\nRotation interrupted, rolling back...")
			cancel()
		case <-ctx.Done():
		}
	}()

	count, err := app.Session.RotatePassphrase(ctx, app.Vault, newPass)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"rotated": count,
		})
	} else {
		printSuccess("Rotated %d files to the new passphrase", count)
	}
	return nil
}
