package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/models"
)

var biometricCmd = &cobra.Command{
	Use:   "biometric",
	Short: "Manage biometric unlock factors",
	Long: `Biometric factors gate interactive unlocking as a convenience. They
never derive key material; a match only stands in for typing the
passphrase you already proved you know.`,
}

var biometricShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show enrolled biometric factors",
	RunE:  runBiometricShow,
}

var biometricRemoveCmd = &cobra.Command{
	Use:       "remove <face|iris|fingerprint>",
	Short:     "Remove an enrolled biometric factor",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"face", "iris", "fingerprint"},
	RunE:      runBiometricRemove,
}

func init() {
	rootCmd.AddCommand(biometricCmd)
	biometricCmd.AddCommand(biometricShowCmd)
	biometricCmd.AddCommand(biometricRemoveCmd)
	addPassphraseFlag(biometricRemoveCmd)
}

func runBiometricShow(cmd *cobra.Command, args []string) error {
	ownerID, err := resolveOwner()
	if err != nil {
		return err
	}

	profile, err := app.Biometric.Profile(ownerID)
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(profile)
		return nil
	}

	if profile.EnrolledCount() == 0 {
		printInfo("No biometric factors enrolled")
		return nil
	}

	if profile.Face != nil {
		fmt.Printf("Face:        enrolled %s (%d samples)\n",
			profile.Face.RegisteredAt.Local().Format("2006-01-02"), profile.Face.SampleCount)
	}
	if profile.Iris != nil {
		fmt.Printf("Iris:        enrolled %s (%d samples)\n",
			profile.Iris.RegisteredAt.Local().Format("2006-01-02"), profile.Iris.SampleCount)
	}
	if profile.Fingerprint != nil {
		fmt.Printf("Fingerprint: registered %s, used %d times\n",
			profile.Fingerprint.CreatedAt.Local().Format("2006-01-02"), profile.Fingerprint.Counter)
	}
	return nil
}

func runBiometricRemove(cmd *cobra.Command, args []string) error {
	ownerID, _, err := openSession()
	if err != nil {
		return err
	}

	modality := models.BiometricModality(args[0])
	if err := app.Biometric.Unenroll(ownerID, modality); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"removed": args[0],
		})
	} else {
		printSuccess("Removed %s factor", args[0])
	}
	return nil
}
