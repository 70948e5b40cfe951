package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"neurolint/internal/backup"
	"neurolint/internal/config"
	"neurolint/internal/driver"
	"neurolint/internal/layers"
	"neurolint/internal/logging"
	"neurolint/internal/orchestrator"
	"neurolint/internal/rules"
	"neurolint/internal/scanner"
	"neurolint/internal/source"
	"neurolint/internal/translog"
	"neurolint/internal/validator"
)

// app bundles every long-lived engine component a command needs.
// Commands construct one per invocation; nothing here is a package
// global, so tests (and a future daemon mode) can build independent
// instances.
type app struct {
	cfg            *config.Config
	registry       *layers.Registry
	parser         *source.Parser
	adaptiveParser *source.Parser
	store          *rules.Store
	log            *translog.Logger
	backups        *backup.Manager
	scanDB         *scanner.Database
	orch           *orchestrator.Orchestrator
	drv            *driver.Driver
}

func newApp(root string) (*app, error) {
	cfg, err := config.Load(filepath.Join(root, configPath))
	if err != nil {
		return nil, err
	}
	cfg.ProjectRoot = root
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Two independent Parser instances: the orchestrator/validator path
	// and the adaptive layer's harvest path each guard their own parser
	// with a private mutex (see orchestrator.Orchestrator and
	// layers.AdaptiveLayer), which only prevents a race if the two paths
	// never touch the same underlying *source.Parser.
	parser := source.NewParser()
	adaptiveParser := source.NewParser()

	store, err := rules.Load(filepath.Join(root, cfg.Rules.StorePath), rules.Options{
		MinConfidence:  cfg.Rules.MinConfidence,
		ReinforceDelta: cfg.Rules.ReinforceDelta,
		DecayDelta:     cfg.Rules.DecayDelta,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open rule store: %w", err)
	}

	tlog, err := translog.Open(filepath.Join(root, cfg.TransLog.Path), translog.Options{
		MaxBytes:   cfg.TransLog.MaxBytes,
		MaxAgeDays: cfg.TransLog.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open transformation log: %w", err)
	}

	backupOpts := backup.DefaultOptions(filepath.Join(root, cfg.Backup.Dir))
	backupOpts.Encrypt = cfg.Backup.Encrypt
	backupOpts.KeyRotationDays = cfg.Backup.KeyRotationDays
	backupOpts.RetainSessions = cfg.Backup.RetainSessions
	if cfg.Backup.Encrypt {
		backupOpts.Passphrase = os.Getenv("NEUROLINT_BACKUP_PASSPHRASE")
	}
	backups, err := backup.Open(backupOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup manager: %w", err)
	}

	scanDB, err := scanner.LoadDatabase(filepath.Join(root, cfg.Scanner.SignaturesDir))
	if err != nil {
		return nil, fmt.Errorf("failed to load signature database: %w", err)
	}

	registry := layers.NewRegistry()
	registry.MustRegister(layers.NewConfigLayer())
	registry.MustRegister(layers.NewPatternFixLayer())
	registry.MustRegister(layers.NewComponentHygieneLayer())
	registry.MustRegister(layers.NewSSRHydrationGuardLayer())
	registry.MustRegister(layers.NewFrameworkMigrationLayer())
	registry.MustRegister(layers.NewTestScaffoldingLayer())
	registry.MustRegister(layers.NewAdaptiveLayer(adaptiveParser, store, tlog, validator.Options{
		MinSizeRatio:  cfg.Validator.MinSizeRatio,
		TinyFileBytes: cfg.Validator.TinyFileBytes,
	}))
	registry.MustRegister(layers.NewSignatureScannerLayer(scanDB, scanner.Options{
		MaxInputBytes: cfg.Scanner.MaxInputBytes,
		ChunkBytes:    cfg.Scanner.ChunkBytes,
		ChunkOverlap:  cfg.Scanner.ChunkOverlap,
		// Parser intentionally left nil: the scanner layer is one shared
		// instance invoked concurrently across files by the driver, and
		// tree-sitter parsers aren't goroutine-safe, so each AST-kind scan
		// builds its own short-lived Parser instead (see scanAST).
	}))

	orch := orchestrator.New(parser, validator.Options{
		MinSizeRatio:  cfg.Validator.MinSizeRatio,
		TinyFileBytes: cfg.Validator.TinyFileBytes,
	})

	drv := driver.New(registry, orch, parser, backups, tlog)

	return &app{
		cfg: cfg, registry: registry, parser: parser, adaptiveParser: adaptiveParser, store: store,
		log: tlog, backups: backups, scanDB: scanDB, orch: orch, drv: drv,
	}, nil
}

// close releases resources that hold open handles. Best-effort: callers
// report but don't fail the command over a close error.
func (a *app) close() {
	if a.backups != nil {
		if err := a.backups.Close(); err != nil {
			logging.CLI("warning: failed to close backup manager: %v", err)
		}
	}
	if a.parser != nil {
		a.parser.Close()
	}
	if a.adaptiveParser != nil {
		a.adaptiveParser.Close()
	}
}

// selectLayerIDs parses a comma-separated layer spec ("all" or
// "1,2,7") into the ordered set of layer.ID the driver should run.
func selectLayerIDs(spec string) ([]layers.ID, error) {
	if spec == "" || spec == "all" {
		return []layers.ID{
			layers.IDConfig, layers.IDPatternFix, layers.IDComponentHygiene,
			layers.IDSSRHydrationGuard, layers.IDFrameworkMigration,
			layers.IDTestScaffolding, layers.IDAdaptive, layers.IDSignatureScanner,
		}, nil
	}
	parts := strings.Split(spec, ",")
	ids := make([]layers.ID, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 8 {
			return nil, fmt.Errorf("invalid layer id %q (must be 1-8)", p)
		}
		ids = append(ids, layers.ID(n))
	}
	return ids, nil
}

// walkTargets expands path into the list of files the engine should
// process: a single file as itself, or every .ts/.tsx/.js/.jsx file
// under a directory (skipping node_modules and dotdirs).
func walkTargets(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var out []string
	err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			base := filepath.Base(p)
			if base == "node_modules" || (base != "." && len(base) > 1 && base[0] == '.') {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(p) {
		case ".ts", ".tsx", ".js", ".jsx", ".json":
			out = append(out, p)
		}
		return nil
	})
	return out, err
}
