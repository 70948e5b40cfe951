// Package backup implements the content-addressed, optionally-encrypted
// Backup Manager: every file the pipeline is about to
// mutate is backed up before the first write, addressable for restore,
// catalogued per session, and securely deletable.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"neurolint/internal/logging"
)

var (
	// ErrIntegrity is returned when a stored backup fails to decode or
	// its auth tag fails verification (tampering or bit rot).
	ErrIntegrity = errors.New("backup: integrity check failed")

	// ErrNotFound is returned when a requested backup or session does
	// not exist in the catalog.
	ErrNotFound = errors.New("backup: not found")
)

// Entry is one BackupEntry: a single file's pre-mutation snapshot
// within a session.
type Entry struct {
	ID          string
	SessionID   string
	File        string // path relative to project root
	ContentHash string
	CreatedAt   time.Time
	Encrypted   bool
	SizeBytes   int64
}

// Options tunes the Manager's encryption and retention policy.
type Options struct {
	Dir             string
	Encrypt         bool
	Passphrase      string // required when Encrypt is true
	KeyRotationDays int
	RetainSessions  int
}

// DefaultOptions returns sane defaults: no encryption, 90-day key
// rotation, 20 retained sessions.
func DefaultOptions(dir string) Options {
	return Options{Dir: dir, KeyRotationDays: DefaultKeyRotationDays, RetainSessions: 20}
}

// Manager is the Backup Manager. One Manager instance owns one backup
// directory tree, one catalog database, and (if encryption is enabled)
// one key record.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	catalog *catalogDB
	keys    *keyStore
	keyRec  EncryptionKeyRecord
	derived []byte // derived AES key, nil when Encrypt is false
}

// Open opens (or initializes) the backup store under opts.Dir.
func Open(opts Options) (*Manager, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	cat, err := openCatalogDB(filepath.Join(opts.Dir, "catalog.db"))
	if err != nil {
		return nil, err
	}

	m := &Manager{
		opts:    opts,
		catalog: cat,
		keys:    newKeyStore(filepath.Join(opts.Dir, "..", "encryption-key")),
	}

	if opts.Encrypt {
		if opts.Passphrase == "" {
			cat.Close()
			return nil, fmt.Errorf("backup: encryption enabled but no passphrase supplied")
		}
		rec, err := m.keys.loadOrInit()
		if err != nil {
			cat.Close()
			return nil, err
		}
		m.keyRec = rec
		m.derived = deriveKey(opts.Passphrase, rec.Salt)
	}

	return m, nil
}

// Close releases the catalog database handle.
func (m *Manager) Close() error {
	return m.catalog.Close()
}

// CreateBackup snapshots content for file within sessionID, returning
// the new Entry. The blob is stored content-addressed by sha256(content)
// so identical content across files or sessions is stored once.
func (m *Manager) CreateBackup(sessionID, file string, content []byte) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash := sha256.Sum256(content)
	hashHex := hex.EncodeToString(hash[:])

	blob, err := encodeBlob(content, m.derived)
	if err != nil {
		return Entry{}, err
	}

	sessionDir := filepath.Join(m.opts.Dir, sessionID)
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return Entry{}, fmt.Errorf("failed to create session backup dir: %w", err)
	}
	blobPath := filepath.Join(sessionDir, hashHex+".blob")
	if _, err := os.Stat(blobPath); os.IsNotExist(err) {
		if err := os.WriteFile(blobPath, blob, 0644); err != nil {
			return Entry{}, fmt.Errorf("failed to write backup blob: %w", err)
		}
	}

	entry := Entry{
		ID:          sessionID + ":" + hashHex + ":" + filepath.ToSlash(file),
		SessionID:   sessionID,
		File:        filepath.ToSlash(file),
		ContentHash: hashHex,
		CreatedAt:   time.Now(),
		Encrypted:   m.opts.Encrypt,
		SizeBytes:   int64(len(content)),
	}

	if err := m.catalog.insert(entry); err != nil {
		return Entry{}, err
	}

	logging.Backup("created backup %s for %s (session=%s)", entry.ID, file, sessionID)
	return entry, nil
}

// Restore returns the original content for a backup entry, verifying
// its auth tag (if encrypted) along the way.
func (m *Manager) Restore(entryID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.catalog.find(entryID)
	if err != nil {
		return nil, err
	}

	blobPath := filepath.Join(m.opts.Dir, entry.SessionID, entry.ContentHash+".blob")
	blob, err := os.ReadFile(blobPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read blob: %v", ErrIntegrity, err)
	}

	var key []byte
	if entry.Encrypted {
		key = m.derived
	}
	content, err := decodeBlob(blob, key)
	if err != nil {
		return nil, err
	}

	gotHash := sha256.Sum256(content)
	if hex.EncodeToString(gotHash[:]) != entry.ContentHash {
		return nil, fmt.Errorf("%w: content hash mismatch after restore", ErrIntegrity)
	}

	logging.Backup("restored backup %s", entryID)
	return content, nil
}

// List returns all entries for a session (or all sessions if sessionID
// is empty), newest first.
func (m *Manager) List(sessionID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.listBySession(sessionID)
}

// Verify re-decodes every entry's blob without writing anything,
// returning a map of entry ID to error for any that fail integrity
// checks (an empty map means every backup verified clean).
func (m *Manager) Verify(sessionID string) (map[string]error, error) {
	entries, err := m.List(sessionID)
	if err != nil {
		return nil, err
	}
	failures := make(map[string]error)
	for _, e := range entries {
		if _, err := m.Restore(e.ID); err != nil {
			failures[e.ID] = err
		}
	}
	return failures, nil
}

// DeleteOldest securely deletes sessions beyond opts.RetainSessions,
// oldest first.
func (m *Manager) DeleteOldest() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale, err := m.catalog.oldestSessionsBeyond(m.opts.RetainSessions)
	if err != nil {
		return err
	}

	for _, sid := range stale {
		dir := filepath.Join(m.opts.Dir, sid)
		if err := secureDeleteDir(dir); err != nil {
			logging.Get(logging.CategoryBackup).Warn("secure delete of session %s failed: %v", sid, err)
		}
		if err := m.catalog.deleteSession(sid); err != nil {
			return err
		}
		logging.Backup("pruned backup session %s (retain=%d)", sid, m.opts.RetainSessions)
	}
	return nil
}

// RotateKeys rotates the encryption key if due per opts.KeyRotationDays.
// Backups written under the prior key remain restorable only while that
// key record is retained; the CLI is expected to re-encrypt an active
// session's backups (by restore-then-recreate) before a rotated key's
// old salt is discarded, a policy left to the Pipeline Driver rather
// than enforced here.
func (m *Manager) RotateKeys(force bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.opts.Encrypt {
		return false, nil
	}
	if !force && !m.keyRec.NeedsRotation(m.opts.KeyRotationDays) {
		return false, nil
	}
	rec, err := m.keys.Rotate()
	if err != nil {
		return false, err
	}
	m.keyRec = rec
	m.derived = deriveKey(m.opts.Passphrase, rec.Salt)
	logging.Backup("rotated encryption key")
	return true, nil
}
