// Package translog implements the append-only Transformation Logger:
// every accepted mutation is recorded with
// before/after content hashes and snippets, survives process restarts,
// and rotates by size or age.
package translog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"neurolint/internal/logging"
)

// Entry is one TransformationLogEntry: a single layer's accepted edit
// to a single file.
type Entry struct {
	Timestamp     time.Time `json:"timestamp"`
	SessionID     string    `json:"session_id"`
	File          string    `json:"file"`
	LayerID       int       `json:"layer_id"`
	LayerName     string    `json:"layer_name"`
	BeforeHash    string    `json:"before_hash"`
	AfterHash     string    `json:"after_hash"`
	BeforeSnippet string    `json:"before_snippet"`
	AfterSnippet  string    `json:"after_snippet"`
	RuleID        string    `json:"rule_id,omitempty"`
}

// HashContent returns the hex sha256 of content, the content-address
// scheme the Backup Manager also uses.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Options tunes rotation thresholds.
type Options struct {
	MaxBytes   int64
	MaxAgeDays int
}

// DefaultOptions returns the default rotation thresholds:
// 16 MiB or 30 days, whichever comes first.
func DefaultOptions() Options {
	return Options{MaxBytes: 16 * 1024 * 1024, MaxAgeDays: 30}
}

// Logger is the append-only Transformation Logger. Safe for concurrent
// use: Append serializes through a single mutex, matching the
// single-writer discipline this log's concurrency model requires of it.
type Logger struct {
	mu   sync.Mutex
	path string
	opts Options
}

type logFile struct {
	Entries []Entry `json:"entries"`
}

// Open opens (or initializes) the log at path.
func Open(path string, opts Options) (*Logger, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create translog directory: %w", err)
			}
		}
		if err := atomicWrite(path, logFile{}); err != nil {
			return nil, err
		}
	}
	return &Logger{path: path, opts: opts}, nil
}

// Append records one accepted mutation and rotates the log if it has
// grown past MaxBytes or its oldest entry has aged past MaxAgeDays.
func (l *Logger) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lf, err := l.readLocked()
	if err != nil {
		return err
	}
	lf.Entries = append(lf.Entries, e)

	if err := atomicWrite(l.path, lf); err != nil {
		return err
	}
	logging.TransLog("appended entry: file=%s layer=%d", e.File, e.LayerID)

	return l.maybeRotateLocked()
}

// Iterate returns entries recorded at or after since (zero value for
// all entries), in append order.
func (l *Logger) Iterate(since time.Time) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lf, err := l.readLocked()
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		return lf.Entries, nil
	}
	var out []Entry
	for _, e := range lf.Entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Logger) readLocked() (logFile, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return logFile{}, nil
		}
		return logFile{}, fmt.Errorf("failed to read transformation log: %w", err)
	}
	var lf logFile
	if len(data) == 0 {
		return logFile{}, nil
	}
	if err := json.Unmarshal(data, &lf); err != nil {
		return logFile{}, fmt.Errorf("failed to parse transformation log: %w", err)
	}
	return lf, nil
}

// maybeRotateLocked drops the oldest entries once size or age exceeds
// the configured thresholds. Rotation truncates in place rather than
// renaming to a dated file, since the log's only consumer
// (cross-session learning liveness) only ever needs recent history.
func (l *Logger) maybeRotateLocked() error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("failed to stat transformation log: %w", err)
	}
	if info.Size() <= l.opts.MaxBytes {
		lf, err := l.readLocked()
		if err != nil {
			return err
		}
		if len(lf.Entries) == 0 {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -l.opts.MaxAgeDays)
		if !lf.Entries[0].Timestamp.Before(cutoff) {
			return nil
		}
	}

	lf, err := l.readLocked()
	if err != nil {
		return err
	}
	cutoff := time.Now().AddDate(0, 0, -l.opts.MaxAgeDays)
	var kept []Entry
	for _, e := range lf.Entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	// Still over size after age-based trim: drop oldest half.
	if int64(estimateSize(kept)) > l.opts.MaxBytes && len(kept) > 1 {
		kept = kept[len(kept)/2:]
	}
	if len(kept) == len(lf.Entries) {
		return nil
	}
	logging.TransLogDebug("rotating transformation log: %d -> %d entries", len(lf.Entries), len(kept))
	return atomicWrite(l.path, logFile{Entries: kept})
}

func estimateSize(entries []Entry) int {
	data, err := json.Marshal(logFile{Entries: entries})
	if err != nil {
		return 0
	}
	return len(data)
}

func atomicWrite(path string, lf logFile) error {
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transformation log: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".translog-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp transformation log: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp transformation log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp transformation log into place: %w", err)
	}
	return nil
}
