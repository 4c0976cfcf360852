package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cybervault/cybervault/internal/creds"
	"github.com/cybervault/cybervault/internal/index"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status",
	RunE:  runStatus,
}

var threatLogOut string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&threatLogOut, "threat-log", "",
		"Write recent security events as JSON to this path")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ownerID, err := resolveOwner()
	if err != nil {
		return err
	}

	registered := true
	if _, err := app.Accounts.Load(ownerID); err != nil {
		if !errors.Is(err, creds.ErrAccountNotFound) {
			return err
		}
		registered = false
	}

	files := 0
	var size int64
	if idx, err := app.Index.Load(ownerID); err == nil {
		files = idx.Count()
		size = idx.TotalSize()
	} else if !errors.Is(err, index.ErrIndexNotFound) {
		return err
	}

	profile, err := app.Biometric.Profile(ownerID)
	if err != nil {
		return err
	}

	if threatLogOut != "" {
		data, err := json.MarshalIndent(app.Session.Events(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode events: %w", err)
		}
		if err := os.WriteFile(threatLogOut, data, 0600); err != nil {
			return fmt.Errorf("write threat log: %w", err)
		}
		printInfo("Threat log written to %s", threatLogOut)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"owner":        ownerID,
			"registered":   registered,
			"files":        files,
			"total_size":   size,
			"biometrics":   profile.EnrolledCount(),
			"index_driver": cfg.Storage.IndexDriver,
			"data_dir":     cfg.Storage.DataDir,
			"risk_score":   app.Session.RiskScore(),
		})
		return nil
	}

	fmt.Printf("Owner:        %s\n", ownerID)
	fmt.Printf("Registered:   %v\n", registered)
	fmt.Printf("Files:        %d (%s)\n", files, formatBytes(size))
	fmt.Printf("Biometrics:   %d enrolled\n", profile.EnrolledCount())
	fmt.Printf("Index driver: %s\n", cfg.Storage.IndexDriver)
	fmt.Printf("Data dir:     %s\n", cfg.Storage.DataDir)
	fmt.Printf("Auto-lock:    %v (idle %s)\n", cfg.Session.AutoLock, cfg.Session.IdleTimeout)
	return nil
}
