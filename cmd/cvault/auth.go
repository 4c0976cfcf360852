package main

import (
	"github.com/spf13/cobra"
)

var passphraseFlag string

func addPassphraseFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&passphraseFlag, "passphrase", "p", "",
		"Vault passphrase (will prompt if not provided)")
}

// getPassphrase returns the flag value or prompts without echo.
func getPassphrase(prompt string) (string, error) {
	if passphraseFlag != "" {
		return passphraseFlag, nil
	}
	return promptPassphrase(prompt)
}

// getPassphraseConfirm re-prompts only when the first value was prompted;
// a flag-supplied passphrase needs no confirmation.
func getPassphraseConfirm(prompt, first string) (string, error) {
	if passphraseFlag != "" {
		return first, nil
	}
	return promptPassphrase(prompt)
}

// openSession verifies the passphrase against the stored account and
// returns an unlocked session's owner and passphrase.
func openSession() (string, string, error) {
	ownerID, err := resolveOwner()
	if err != nil {
		return "", "", err
	}

	passphrase, err := getPassphrase("Passphrase: ")
	if err != nil {
		return "", "", err
	}

	if demoMode {
		if _, err := app.Session.LoginDemo(ownerID, passphrase); err != nil {
			return "", "", err
		}
	} else if _, err := app.Session.Login(ownerID, passphrase); err != nil {
		return "", "", err
	}

	resident, err := app.Session.Passphrase()
	if err != nil {
		return "", "", err
	}
	return ownerID, resident, nil
}
