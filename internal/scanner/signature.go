// Package scanner implements the Signature Scanner (layer 8): a
// read-only layer that walks a file against a signature
// database and emits Findings, never mutating code.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Kind distinguishes a regex signature from a structural (AST) one.
type Kind string

const (
	KindRegex Kind = "regex"
	KindAST   Kind = "ast"
)

// Severity mirrors layers.Severity without importing that package,
// since the signature database is standalone data and the scanner is
// wired into the Layer Registry by internal/layers, not the reverse.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Signature is one entry in the IoC database: opaque input data the
// scanner interprets, never code the scanner ships fixed logic for.
type Signature struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Category    string   `yaml:"category"`
	Severity    Severity `yaml:"severity"`
	Kind        Kind     `yaml:"kind"`
	Pattern     string   `yaml:"pattern"`
	FileTypes   []string `yaml:"file_types"`
	References  []string `yaml:"references"`
	Remediation string   `yaml:"remediation"`

	compiled *regexp.Regexp
}

// Database is a loaded, compiled signature set.
type Database struct {
	Signatures []Signature
}

// LoadDatabase reads signature YAML files from dir (each containing a
// top-level `signatures:` list) and merges them with the embedded
// defaults. Missing dir is not an error — the defaults still apply.
func LoadDatabase(dir string) (*Database, error) {
	db := &Database{Signatures: append([]Signature(nil), DefaultSignatures()...)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return compileAll(db)
		}
		return nil, fmt.Errorf("failed to read signatures directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read signature file %s: %w", entry.Name(), err)
		}
		var file struct {
			Signatures []Signature `yaml:"signatures"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse signature file %s: %w", entry.Name(), err)
		}
		db.Signatures = append(db.Signatures, file.Signatures...)
	}

	return compileAll(db)
}

func compileAll(db *Database) (*Database, error) {
	for i := range db.Signatures {
		s := &db.Signatures[i]
		if s.Kind != KindRegex {
			continue
		}
		if err := checkPatternSafety(s.Pattern); err != nil {
			return nil, fmt.Errorf("signature %s: %w", s.ID, err)
		}
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature %s: invalid pattern: %w", s.ID, err)
		}
		s.compiled = re
	}
	return db, nil
}
