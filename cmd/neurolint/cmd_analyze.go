package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"neurolint/internal/driver"
	"neurolint/internal/layers"
)

var (
	analyzeLayerSpec string
	analyzeFormat    string
	analyzeFailOn    string
	analyzeShowDiff  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Report what would change, without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLayerSpec, "layers", "all", "Comma-separated layer IDs to run, or \"all\"")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "line", "Report format: line, json, sarif")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "high", "Minimum finding severity that fails the run: info, low, medium, high, critical")
	analyzeCmd.Flags().BoolVar(&analyzeShowDiff, "diff", false, "Print a unified diff of what each file's changes would look like")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	target := args[0]

	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	ids, err := selectLayerIDs(analyzeLayerSpec)
	if err != nil {
		return err
	}
	files, err := walkTargets(target)
	if err != nil {
		return fmt.Errorf("failed to enumerate %s: %w", target, err)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "no matching files under %s\n", target)
		return nil
	}

	report, err := a.drv.Run(context.Background(), workspace, files, ids, driver.Options{
		DryRun: true, NoBackup: true, Verbose: verbose,
	})
	if err != nil {
		return err
	}

	if err := writeReport(os.Stdout, report, analyzeFormat); err != nil {
		return err
	}
	if analyzeShowDiff {
		writeDiffs(os.Stdout, report)
	}

	os.Exit(reportExitCode(report, layers.Severity(analyzeFailOn)))
	return nil
}
