package backup

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations and KeyBytes: PBKDF2-HMAC-SHA512, matching the derivation
	// PBKDF2-HMAC-SHA512, 100,000 iterations, 32-byte key.
	PBKDF2Iterations = 100000
	KeyBytes         = 32
	saltBytes        = 32

	// DefaultKeyRotationDays is the default key-rotation interval.
	DefaultKeyRotationDays = 90
)

// EncryptionKeyRecord is the persisted record backing the derived key:
// the passphrase itself is never stored, only the salt and enough
// metadata to know when to rotate.
type EncryptionKeyRecord struct {
	Salt      []byte    `json:"salt"`
	CreatedAt time.Time `json:"created_at"`
	RotatedAt time.Time `json:"rotated_at"`
}

// keyStore manages the on-disk EncryptionKeyRecord at
// .neurolint/encryption-key (mode 0600, matching the project's persisted
// state layout) and derives the active AES-256 key from a passphrase.
type keyStore struct {
	path string
}

func newKeyStore(path string) *keyStore {
	return &keyStore{path: path}
}

// loadOrInit reads the existing key record, or creates one with a fresh
// random salt if none exists.
func (k *keyStore) loadOrInit() (EncryptionKeyRecord, error) {
	data, err := os.ReadFile(k.path)
	if err == nil {
		var rec EncryptionKeyRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return EncryptionKeyRecord{}, fmt.Errorf("failed to parse encryption key record: %w", err)
		}
		return rec, nil
	}
	if !os.IsNotExist(err) {
		return EncryptionKeyRecord{}, fmt.Errorf("failed to read encryption key record: %w", err)
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return EncryptionKeyRecord{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	now := time.Now()
	rec := EncryptionKeyRecord{Salt: salt, CreatedAt: now, RotatedAt: now}
	if err := k.save(rec); err != nil {
		return EncryptionKeyRecord{}, err
	}
	return rec, nil
}

func (k *keyStore) save(rec EncryptionKeyRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encryption key record: %w", err)
	}
	dir := filepath.Dir(k.path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create key directory: %w", err)
		}
	}
	if err := os.WriteFile(k.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write encryption key record: %w", err)
	}
	return nil
}

// NeedsRotation reports whether rec's key is due for rotation per
// rotationDays (default 90).
func (rec EncryptionKeyRecord) NeedsRotation(rotationDays int) bool {
	if rotationDays <= 0 {
		rotationDays = DefaultKeyRotationDays
	}
	return time.Since(rec.RotatedAt) >= time.Duration(rotationDays)*24*time.Hour
}

// Rotate generates a fresh salt and records the rotation time. Existing
// backups encrypted under the prior salt remain decryptable only via
// the prior passphrase+salt pair; callers needing continuity should
// re-encrypt active backups before discarding the old record (the CLI's
// `backup verify` surfaces integrity failures if they don't).
func (k *keyStore) Rotate() (EncryptionKeyRecord, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return EncryptionKeyRecord{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	now := time.Now()
	rec := EncryptionKeyRecord{Salt: salt, CreatedAt: now, RotatedAt: now}
	if err := k.save(rec); err != nil {
		return EncryptionKeyRecord{}, err
	}
	return rec, nil
}

// deriveKey derives a 32-byte AES-256 key from passphrase and salt via
// PBKDF2-HMAC-SHA512 at 100,000 iterations.
func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeyBytes, sha512.New)
}
