// Package main implements the neurolint CLI, the operator surface over
// the transformation engine in internal/.
//
// # File Index
//
//   - main.go        - entry point, rootCmd, global flags, init()
//   - app.go         - shared engine wiring (config, layers, backup, rules, scanner)
//   - cmd_analyze.go - analyze subcommand
//   - cmd_fix.go     - fix subcommand (including --watch)
//   - cmd_restore.go - restore subcommand (including --interactive picker)
//   - cmd_backup.go  - backup list|verify|delete
//   - cmd_rules.go   - rules list|export|import|edit|reset
//   - report.go      - report formatting (line, json, sarif) and exit codes
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"neurolint/internal/logging"
)

var (
	verbose     bool
	workspace   string
	configPath  string
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "neurolint",
	Short: "neurolint - deterministic, fail-safe source transformation engine",
	Long: `neurolint applies a layered, fail-safe transformation pipeline to
React/Next.js/TypeScript codebases: each layer's AST-level attempt is
validated and, on rejection, retried with a regex fallback; any layer
that still fails to validate is reverted, leaving the file untouched.

Run "neurolint analyze <path>" for a read-only report, or
"neurolint fix <path>" to apply changes with automatic backups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}
		abs, err := filepath.Abs(ws)
		if err == nil {
			ws = abs
		}
		workspace = ws

		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize logging: %v\n", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project root (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".neurolint.yaml", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForError(err))
	}
}
