package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRestoreUnencrypted(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(DefaultOptions(dir))
	require.NoError(t, err)
	defer m.Close()

	content := []byte("export const x = 1;\n")
	entry, err := m.CreateBackup("session-1", "src/x.ts", content)
	require.NoError(t, err)
	assert.False(t, entry.Encrypted)

	got, err := m.Restore(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCreateRestoreEncrypted(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(dir)
	opts.Encrypt = true
	opts.Passphrase = "correct horse battery staple"
	m, err := Open(opts)
	require.NoError(t, err)
	defer m.Close()

	content := []byte("'use client'\nexport default function Page() { return null }\n")
	entry, err := m.CreateBackup("session-1", "app/page.tsx", content)
	require.NoError(t, err)
	assert.True(t, entry.Encrypted)

	got, err := m.Restore(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRestoreDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(dir)
	opts.Encrypt = true
	opts.Passphrase = "correct horse battery staple"
	m, err := Open(opts)
	require.NoError(t, err)
	defer m.Close()

	entry, err := m.CreateBackup("session-1", "src/x.ts", []byte("const x = 1;\n"))
	require.NoError(t, err)

	blobPath := filepath.Join(dir, "session-1", entry.ContentHash+".blob")
	blob, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	tampered := append([]byte(nil), blob...)
	tampered[len(tampered)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(blobPath, tampered, 0644))

	_, err = m.Restore(entry.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestListAndVerify(t *testing.T) {
	dir := t.TempDir()
	m, err := Open(DefaultOptions(dir))
	require.NoError(t, err)
	defer m.Close()

	_, err = m.CreateBackup("session-1", "a.ts", []byte("a"))
	require.NoError(t, err)
	_, err = m.CreateBackup("session-1", "b.ts", []byte("b"))
	require.NoError(t, err)

	entries, err := m.List("session-1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	failures, err := m.Verify("session-1")
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestDeleteOldestPrunesBeyondRetention(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(dir)
	opts.RetainSessions = 1
	m, err := Open(opts)
	require.NoError(t, err)
	defer m.Close()

	_, err = m.CreateBackup("session-old", "a.ts", []byte("a"))
	require.NoError(t, err)
	_, err = m.CreateBackup("session-new", "b.ts", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, m.DeleteOldest())

	_, err = os.Stat(filepath.Join(dir, "session-old"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "session-new"))
	assert.NoError(t, err)
}

func TestRotateKeysForced(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(dir)
	opts.Encrypt = true
	opts.Passphrase = "pw"
	m, err := Open(opts)
	require.NoError(t, err)
	defer m.Close()

	before := m.keyRec.Salt
	rotated, err := m.RotateKeys(true)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.NotEqual(t, before, m.keyRec.Salt)
}
