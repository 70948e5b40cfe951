package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	restoreInteractive bool
	restoreEntryID     string
	restoreSession     string
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a file from backup",
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreInteractive, "interactive", "i", false, "Pick a backup entry interactively")
	restoreCmd.Flags().StringVar(&restoreEntryID, "entry", "", "Backup entry ID to restore (non-interactive mode)")
	restoreCmd.Flags().StringVar(&restoreSession, "session", "", "Restrict the interactive picker to one session ID")
}

func runRestore(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	var entryID string

	switch {
	case restoreInteractive:
		entries, err := a.backups.List(restoreSession)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no backups found")
			return nil
		}
		chosen, err := runRestorePicker(entries)
		if err != nil {
			return err
		}
		if chosen == nil {
			fmt.Println("restore cancelled")
			return nil
		}
		entryID = chosen.ID
	case restoreEntryID != "":
		entryID = restoreEntryID
	default:
		return fmt.Errorf("specify --entry <id> or --interactive")
	}

	content, err := a.backups.Restore(entryID)
	if err != nil {
		return err
	}

	entries, err := a.backups.List("")
	if err != nil {
		return err
	}
	var target string
	for _, e := range entries {
		if e.ID == entryID {
			target = e.File
			break
		}
	}
	if target == "" {
		return fmt.Errorf("entry %s not found in catalog", entryID)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(workspace, target)
	}

	if err := os.WriteFile(target, content, 0644); err != nil {
		return fmt.Errorf("failed to write restored content to %s: %w", target, err)
	}

	fmt.Printf("restored %s from %s\n", target, entryID)
	return nil
}
