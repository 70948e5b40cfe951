// Package driver implements the Pipeline Driver: it
// enumerates files and layers, invokes the Orchestrator per (file,
// layer), threads results forward, and owns the backup/write/log
// side effects on accepted mutations.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"neurolint/internal/backup"
	"neurolint/internal/diff"
	"neurolint/internal/layers"
	"neurolint/internal/logging"
	"neurolint/internal/orchestrator"
	"neurolint/internal/source"
	"neurolint/internal/translog"
)

// maxLogSnippetBytes bounds how much of a removed/added line run gets
// copied into a log entry's snippet fields, so a layer that rewrites a
// huge block doesn't bloat the transformation log.
const maxLogSnippetBytes = 2048

// Options tunes a single Run.
type Options struct {
	DryRun      bool
	NoBackup    bool
	Verbose     bool
	Concurrency int // 0 means DefaultConcurrency
	SessionID   string
}

// DefaultConcurrency bounds parallel file processing when Options.Concurrency is 0.
const DefaultConcurrency = 8

// ErrIO is wrapped around every read/write/backup failure a Run hits,
// so the CLI boundary can tell an I/O failure apart from a rejected
// transform (which never reaches FileReport.Err; see Orchestrator) via
// errors.Is.
var ErrIO = errors.New("driver: i/o failure")

// FileReport is one file's outcome for the run.
type FileReport struct {
	Path        string
	LayerResults []layers.Result
	Findings    []layers.Finding
	Failed      bool
	Err         error
}

// RunReport aggregates a Run's outcome across all files.
type RunReport struct {
	Files       []FileReport
	MaxSeverity layers.Severity
	AnyFailed   bool
}

// Driver owns the shared Orchestrator, parser, backup manager, and
// transformation log a Run needs.
type Driver struct {
	registry *layers.Registry
	orch     *orchestrator.Orchestrator
	parser   *source.Parser
	backups  *backup.Manager
	log      *translog.Logger
}

// New constructs a Driver. backups and log may be nil (NoBackup runs,
// or a caller that doesn't want transformation logging).
func New(registry *layers.Registry, orch *orchestrator.Orchestrator, parser *source.Parser, backups *backup.Manager, log *translog.Logger) *Driver {
	return &Driver{registry: registry, orch: orch, parser: parser, backups: backups, log: log}
}

// Run processes files through selectedLayers (an ordered subset of the
// registry; actual execution order is always registry order intersected
// with the selection).
func (d *Driver) Run(ctx context.Context, projectRoot string, files []string, selectedLayers []layers.ID, opts Options) (*RunReport, error) {
	selected := d.registry.Select(selectedLayers)
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SessionID == "" {
		opts.SessionID = defaultSessionID()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	reports := make([]FileReport, len(files))
	var mu sync.Mutex
	var anyFailed bool
	maxSeverity := layers.SeverityInfo

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil // cancellation: stop scheduling new work, let in-flight finish
			}
			report := d.processFile(gctx, projectRoot, file, selected, opts)

			mu.Lock()
			reports[i] = report
			if report.Failed {
				anyFailed = true
			}
			for _, f := range report.Findings {
				if f.Severity.Rank() > maxSeverity.Rank() {
					maxSeverity = f.Severity
				}
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &RunReport{Files: reports, MaxSeverity: maxSeverity, AnyFailed: anyFailed}, nil
}

// processFile threads a single file through the selected layers in
// order, backing up and writing on the first accepted mutation.
func (d *Driver) processFile(ctx context.Context, projectRoot, path string, selected []layers.Layer, opts Options) FileReport {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileReport{Path: path, Failed: true, Err: fmt.Errorf("%w: failed to read %s: %v", ErrIO, path, err)}
	}
	lang := source.DetectLanguage(path)

	var prior []layers.Result
	backedUp := false
	current := content
	report := FileReport{Path: path}

	for _, layer := range selected {
		lctx := layers.Context{
			ProjectRoot: projectRoot, FilePath: path, Language: lang,
			Verbose: opts.Verbose, DryRun: opts.DryRun,
			Prior: layers.NewPriorResultsView(prior),
		}

		result := d.orch.Run(ctx, layer, path, lang, current, lctx)
		prior = append(prior, result)
		report.LayerResults = append(report.LayerResults, result)
		report.Findings = append(report.Findings, result.Findings...)

		if !result.Success || !result.Changed() {
			continue
		}

		if opts.DryRun {
			current = result.Code
			continue
		}

		if !opts.NoBackup && d.backups != nil && !backedUp {
			if _, err := d.backups.CreateBackup(opts.SessionID, relOrAbs(projectRoot, path), content); err != nil {
				report.Failed = true
				report.Err = fmt.Errorf("%w: backup failed for %s: %v", ErrIO, path, err)
				return report
			}
			backedUp = true
		}

		if err := os.WriteFile(path, result.Code, 0644); err != nil {
			report.Failed = true
			report.Err = fmt.Errorf("%w: write failed for %s: %v", ErrIO, path, err)
			return report
		}

		if d.log != nil {
			beforeSnippet, afterSnippet := logSnippets(path, current, result.Code)
			entry := translog.Entry{
				Timestamp: time.Now(), SessionID: opts.SessionID, File: relOrAbs(projectRoot, path),
				LayerID: int(layer.ID()), LayerName: layer.Name(),
				BeforeHash: translog.HashContent(current), AfterHash: translog.HashContent(result.Code),
				BeforeSnippet: beforeSnippet, AfterSnippet: afterSnippet,
			}
			if err := d.log.Append(entry); err != nil {
				logging.DriverError("failed to append transformation log entry for %s: %v", path, err)
			}
		}

		current = result.Code
	}

	return report
}

// logSnippets reduces a layer's full before/after content to the
// removed and added lines the line-level diff engine identifies,
// joined back into two short strings — what the Adaptive Layer's
// cross-session harvest treats as a single Before/After edit pair, and
// what an operator reading the transformation log actually wants to
// see instead of two entire file bodies.
func logSnippets(path string, before, after []byte) (string, string) {
	fd := diff.ComputeDiff(path, path, string(before), string(after))
	var removed, added []string
	for _, hunk := range fd.Hunks {
		for _, line := range hunk.Lines {
			switch line.Type {
			case diff.LineRemoved:
				removed = append(removed, line.Content)
			case diff.LineAdded:
				added = append(added, line.Content)
			}
		}
	}
	return truncateSnippet(strings.Join(removed, "\n")), truncateSnippet(strings.Join(added, "\n"))
}

func truncateSnippet(s string) string {
	if len(s) <= maxLogSnippetBytes {
		return s
	}
	return s[:maxLogSnippetBytes]
}

func relOrAbs(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func defaultSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixNano(), uuid.New().String()[:8])
}
