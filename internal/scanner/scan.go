package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"neurolint/internal/source"
)

// ErrBounded is wrapped around a rejected signature pattern: a
// would-be scan input the engine refuses to run because the pattern
// itself (not the file being scanned) has an unbounded/unsafe shape.
var ErrBounded = errors.New("scanner: pattern exceeds bounded-execution limits")

// MaxInputBytes bounds a single regex scan pass; larger inputs are
// chunked (with ChunkOverlap bytes of context carried across chunk
// boundaries so a match straddling a cut point isn't missed).
const (
	DefaultMaxInputBytes = 2 * 1024 * 1024
	DefaultChunkBytes    = 256 * 1024
	DefaultChunkOverlap  = 256
)

// Finding is one scanner hit against a file.
type Finding struct {
	SignatureID string
	Name        string
	Category    string
	Severity    Severity
	File        string
	Offset      int
	Snippet     string
	Remediation string
}

// Options tunes chunking for large files.
type Options struct {
	MaxInputBytes int
	ChunkBytes    int
	ChunkOverlap  int
	// Parser, if set, is reused for AST-kind signatures instead of
	// constructing a fresh grammar-loaded parser per scan. Only safe to
	// set when Scan is never called concurrently with that Parser in use
	// elsewhere — tree-sitter parsers aren't goroutine-safe.
	Parser *source.Parser
}

// DefaultOptions returns the default chunking parameters.
func DefaultOptions() Options {
	return Options{MaxInputBytes: DefaultMaxInputBytes, ChunkBytes: DefaultChunkBytes, ChunkOverlap: DefaultChunkOverlap}
}

// Scan runs every signature in db applicable to path's extension
// against content, returning all findings.
func Scan(ctx context.Context, db *Database, path string, content []byte, opts Options) ([]Finding, error) {
	if len(content) > opts.MaxInputBytes {
		return scanChunked(ctx, db, path, content, opts)
	}

	var findings []Finding
	ext := filepath.Ext(path)
	for _, sig := range db.Signatures {
		if !appliesToFile(sig, ext) {
			continue
		}
		switch sig.Kind {
		case KindRegex:
			findings = append(findings, scanRegex(sig, path, content, 0)...)
		case KindAST:
			fs, err := scanAST(ctx, sig, path, content, opts.Parser)
			if err != nil {
				continue
			}
			findings = append(findings, fs...)
		}
	}
	return findings, nil
}

func scanChunked(ctx context.Context, db *Database, path string, content []byte, opts Options) ([]Finding, error) {
	var findings []Finding
	ext := filepath.Ext(path)

	for start := 0; start < len(content); start += opts.ChunkBytes {
		end := start + opts.ChunkBytes
		if end > len(content) {
			end = len(content)
		}
		chunkStart := start
		if start > 0 {
			chunkStart = start - opts.ChunkOverlap
			if chunkStart < 0 {
				chunkStart = 0
			}
		}
		chunk := content[chunkStart:end]

		for _, sig := range db.Signatures {
			if !appliesToFile(sig, ext) {
				continue
			}
			if sig.Kind != KindRegex {
				continue
			}
			findings = append(findings, scanRegex(sig, path, chunk, chunkStart)...)
		}
	}
	return dedupeFindings(findings), nil
}

func scanRegex(sig Signature, path string, content []byte, baseOffset int) []Finding {
	if sig.compiled == nil {
		return nil
	}
	locs := sig.compiled.FindAllIndex(content, -1)
	if locs == nil {
		return nil
	}
	out := make([]Finding, 0, len(locs))
	for _, loc := range locs {
		out = append(out, Finding{
			SignatureID: sig.ID, Name: sig.Name, Category: sig.Category, Severity: sig.Severity,
			File: path, Offset: baseOffset + loc[0], Snippet: snippet(content, loc[0], loc[1]),
			Remediation: sig.Remediation,
		})
	}
	return out
}

// scanAST runs a structural predicate for the one AST signature kind the
// embedded defaults ship: a call whose callee is `fetch` and whose
// receiver chain's root identifier is req/request/context (a tainted
// server-side fetch source).
func scanAST(ctx context.Context, sig Signature, path string, content []byte, parser *source.Parser) ([]Finding, error) {
	if parser == nil {
		parser = source.NewParser()
	}
	tree, err := parser.Parse(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var findings []Finding
	var walk func(n source.Node)
	walk = func(n source.Node) {
		if n == nil {
			return
		}
		if isTaintedFetchCall(tree, n) {
			findings = append(findings, Finding{
				SignatureID: sig.ID, Name: sig.Name, Category: sig.Category, Severity: sig.Severity,
				File: path, Offset: n.StartByte(), Snippet: snippet(content, n.StartByte(), n.EndByte()),
				Remediation: sig.Remediation,
			})
		}
		for _, c := range n.NamedChildren() {
			walk(c)
		}
	}
	walk(tree.Root())
	return findings, nil
}

func isTaintedFetchCall(tree *source.Tree, n source.Node) bool {
	if n.Kind() != "call_expression" {
		return false
	}
	text := string(tree.Text(n))
	if !strings.Contains(text, "fetch(") {
		return false
	}
	for _, root := range []string{"req.", "request.", "context."} {
		if strings.Contains(text, root) {
			return true
		}
	}
	return false
}

func appliesToFile(sig Signature, ext string) bool {
	if len(sig.FileTypes) == 0 {
		return true
	}
	for _, ft := range sig.FileTypes {
		if ft == ext {
			return true
		}
	}
	return false
}

func snippet(content []byte, start, end int) string {
	lineStart := bytes.LastIndexByte(content[:start], '\n') + 1
	lineEndRel := bytes.IndexByte(content[end:], '\n')
	lineEnd := len(content)
	if lineEndRel >= 0 {
		lineEnd = end + lineEndRel
	}
	line := strings.TrimSpace(string(content[lineStart:lineEnd]))
	if len(line) > 160 {
		line = line[:160] + "..."
	}
	return line
}

func dedupeFindings(findings []Finding) []Finding {
	seen := make(map[string]bool, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		key := fmt.Sprintf("%s:%d", f.SignatureID, f.Offset)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

// checkPatternSafety rejects regex sources with shapes known to risk
// catastrophic compile-time/memory blowup even under RE2's linear-time
// match guarantee: nested quantifiers like (a+)+ or (a*)*, and patterns
// past a sane length ceiling.
func checkPatternSafety(pattern string) error {
	if len(pattern) > 512 {
		return fmt.Errorf("%w: pattern exceeds 512 bytes", ErrBounded)
	}
	if nestedQuantifierRe.MatchString(pattern) {
		return fmt.Errorf("%w: pattern contains a nested quantifier shape", ErrBounded)
	}
	return nil
}

var nestedQuantifierRe = regexp.MustCompile(`\([^()]*[+*]\)[+*]`)
