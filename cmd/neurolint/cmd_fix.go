package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"neurolint/internal/driver"
	"neurolint/internal/layers"
	"neurolint/internal/logging"
)

var (
	fixLayerSpec string
	fixDryRun    bool
	fixNoBackup  bool
	fixFormat    string
	fixFailOn    string
	fixWatch     bool
	fixShowDiff  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <path>",
	Short: "Apply the transformation pipeline, with automatic backups",
	Args:  cobra.ExactArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().StringVar(&fixLayerSpec, "layers", "all", "Comma-separated layer IDs to run, or \"all\"")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Compute changes but do not write them")
	fixCmd.Flags().BoolVar(&fixNoBackup, "no-backup", false, "Skip creating a backup before the first mutation per file")
	fixCmd.Flags().StringVar(&fixFormat, "format", "line", "Report format: line, json, sarif")
	fixCmd.Flags().StringVar(&fixFailOn, "fail-on", "high", "Minimum finding severity that fails the run")
	fixCmd.Flags().BoolVar(&fixWatch, "watch", false, "Re-run on every subsequent file change under path")
	fixCmd.Flags().BoolVar(&fixShowDiff, "diff", false, "Print a unified diff of every changed file")
}

func runFix(cmd *cobra.Command, args []string) error {
	target := args[0]

	a, err := newApp(workspace)
	if err != nil {
		return err
	}
	defer a.close()

	ids, err := selectLayerIDs(fixLayerSpec)
	if err != nil {
		return err
	}

	runOnce := func() (int, error) {
		files, err := walkTargets(target)
		if err != nil {
			return exitEngineErr, fmt.Errorf("failed to enumerate %s: %w", target, err)
		}
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "no matching files under %s\n", target)
			return exitClean, nil
		}
		report, err := a.drv.Run(context.Background(), workspace, files, ids, driver.Options{
			DryRun: fixDryRun, NoBackup: fixNoBackup, Verbose: verbose,
		})
		if err != nil {
			return exitEngineErr, err
		}
		if err := writeReport(os.Stdout, report, fixFormat); err != nil {
			return exitEngineErr, err
		}
		if fixShowDiff {
			writeDiffs(os.Stdout, report)
		}
		return reportExitCode(report, layers.Severity(fixFailOn)), nil
	}

	code, err := runOnce()
	if err != nil {
		return err
	}
	if !fixWatch {
		os.Exit(code)
		return nil
	}

	return watchAndFix(target, runOnce)
}

// watchAndFix re-invokes runOnce whenever a tracked file under target
// changes, debounced per-event by fsnotify's own coalescing. Runs until
// interrupted (Ctrl-C); the process's final exit code is the last run's.
func watchAndFix(target string, runOnce func() (int, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, target); err != nil {
		return err
	}

	logging.CLI("watching %s for changes (Ctrl-C to stop)", target)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTrackedChange(event) {
				continue
			}
			logging.CLIDebug("change detected: %s", event.Name)
			if _, err := runOnce(); err != nil {
				fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.Walk(root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		base := filepath.Base(p)
		if base == "node_modules" || (base != "." && base != root && len(base) > 1 && base[0] == '.') {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
}

func isTrackedChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".ts", ".tsx", ".js", ".jsx", ".json":
		return true
	default:
		return false
	}
}
