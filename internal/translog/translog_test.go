package translog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndIterate(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "transformation-log.json"), DefaultOptions())
	require.NoError(t, err)

	e := Entry{
		Timestamp: time.Now(), SessionID: "s1", File: "App.tsx", LayerID: 3,
		LayerName: "component-hygiene", BeforeHash: HashContent([]byte("a")), AfterHash: HashContent([]byte("b")),
	}
	require.NoError(t, l.Append(e))

	entries, err := l.Iterate(time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "App.tsx", entries[0].File)
}

func TestIterateFiltersSince(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "transformation-log.json"), DefaultOptions())
	require.NoError(t, err)

	old := Entry{Timestamp: time.Now().Add(-48 * time.Hour), File: "old.ts"}
	recent := Entry{Timestamp: time.Now(), File: "new.ts"}
	require.NoError(t, l.Append(old))
	require.NoError(t, l.Append(recent))

	entries, err := l.Iterate(time.Now().Add(-1 * time.Hour))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new.ts", entries[0].File)
}

func TestRotationDropsOldEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(filepath.Join(dir, "transformation-log.json"), Options{MaxBytes: 16 * 1024 * 1024, MaxAgeDays: 1})
	require.NoError(t, err)

	stale := Entry{Timestamp: time.Now().AddDate(0, 0, -5), File: "stale.ts"}
	require.NoError(t, l.Append(stale))
	fresh := Entry{Timestamp: time.Now(), File: "fresh.ts"}
	require.NoError(t, l.Append(fresh))

	entries, err := l.Iterate(time.Time{})
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "stale.ts", e.File)
	}
}

func TestHashContentIsDeterministic(t *testing.T) {
	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}
