package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/services/totp"
)

var totpCmd = &cobra.Command{
	Use:   "totp",
	Short: "Manage the TOTP second factor",
	Long: `TOTP is a convenience factor for interactive unlocking. It never
protects the encryption itself; only the passphrase does.`,
}

var totpEnrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll an authenticator app",
	RunE:  runTOTPEnroll,
}

var totpCodeCmd = &cobra.Command{
	Use:   "code",
	Short: "Show the current TOTP code",
	RunE:  runTOTPCode,
}

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Generate fresh recovery codes",
	Long: `Recovery codes bypass the TOTP factor once each. Generating a new set
invalidates all previous codes. They are shown exactly once.`,
	RunE: runRecovery,
}

func init() {
	rootCmd.AddCommand(totpCmd)
	totpCmd.AddCommand(totpEnrollCmd)
	totpCmd.AddCommand(totpCodeCmd)
	totpCmd.AddCommand(recoveryCmd)
	addPassphraseFlag(totpEnrollCmd)
	addPassphraseFlag(totpCodeCmd)
	addPassphraseFlag(recoveryCmd)
}

func runTOTPEnroll(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	account, err := app.Accounts.Load(ownerID)
	if err != nil {
		return err
	}

	service := totp.NewService()
	secret, url, err := service.Enroll(ownerID)
	if err != nil {
		return err
	}

	account.TOTPSecret = secret
	if err := app.Accounts.Save(account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"secret":  secret,
			"url":     url,
		})
	} else {
		printSuccess("TOTP enrolled for %s", ownerID)
		printInfo("Secret: %s", secret)
		printInfo("Provisioning URL: %s", url)
	}
	return nil
}

func runTOTPCode(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	account, err := app.Accounts.Load(ownerID)
	if err != nil {
		return err
	}
	if account.TOTPSecret == "" {
		return fmt.Errorf("no TOTP secret enrolled: run 'cvault totp enroll'")
	}

	service := totp.NewService()
	code, err := service.GenerateCode(account.TOTPSecret)
	if err != nil {
		return err
	}

	_, remaining := service.TimeWindow()
	if jsonOutput {
		printJSON(map[string]interface{}{
			"code":         code,
			"valid_for_ms": remaining.Milliseconds(),
		})
	} else {
		printInfo("%s (valid for %v)", code, remaining.Round(time.Second))
	}
	return nil
}

func runRecovery(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	account, err := app.Accounts.Load(ownerID)
	if err != nil {
		return err
	}

	codes, set, err := totp.GenerateRecoveryCodes()
	if err != nil {
		return err
	}

	account.Recovery = set
	if err := app.Accounts.Save(account); err != nil {
		return fmt.Errorf("save account: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"codes":   codes,
		})
		return nil
	}

	printSuccess("Recovery codes generated. Store them somewhere safe:")
	for _, code := range codes {
		fmt.Printf("  %s\n", code)
	}
	printWarning("These codes are shown once and replace any previous set.")
	return nil
}
