package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var backupSession string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and manage file backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup entries for a session (or all sessions)",
	RunE:  runBackupList,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-verify every backup entry's integrity",
	RunE:  runBackupVerify,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Securely delete sessions beyond the retention limit",
	RunE:  runBackupDelete,
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupSession, "session", "", "Restrict to one session ID (default: all sessions)")
	backupCmd.AddCommand(backupListCmd, backupVerifyCmd, backupDeleteCmd)
}

func runBackupList(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.backups.List(backupSession)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no backups found")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  session=%s  file=%s  size=%dB  encrypted=%v  created=%s\n",
			e.ID, e.SessionID, e.File, e.SizeBytes, e.Encrypted, e.CreatedAt.Format("2006-01-02T15:04:05"))
	}
	return nil
}

func runBackupVerify(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	failures, err := a.backups.Verify(backupSession)
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		fmt.Println("all backups verified clean")
		return nil
	}
	for id, ferr := range failures {
		fmt.Fprintf(os.Stderr, "%s: FAILED: %v\n", id, ferr)
	}
	os.Exit(exitFindings)
	return nil
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.backups.DeleteOldest(); err != nil {
		return err
	}
	fmt.Println("pruned sessions beyond the retention limit")
	return nil
}
