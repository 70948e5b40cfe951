package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"neurolint/internal/backup"
	"neurolint/internal/layers"
	"neurolint/internal/orchestrator"
	"neurolint/internal/source"
	"neurolint/internal/translog"
	"neurolint/internal/validator"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func newTestDriver(t *testing.T, dir string) *Driver {
	t.Helper()
	parser := source.NewParser()
	t.Cleanup(parser.Close)

	orch := orchestrator.New(parser, validator.DefaultOptions())

	backups, err := backup.Open(backup.DefaultOptions(filepath.Join(dir, "backups")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backups.Close() })

	tlog, err := translog.Open(filepath.Join(dir, "translog.jsonl"), translog.DefaultOptions())
	require.NoError(t, err)

	registry := layers.NewRegistry()
	registry.MustRegister(layers.NewConfigLayer())

	return New(registry, orch, parser, backups, tlog)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunAppliesConfigLayerAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	path := writeFile(t, dir, "tsconfig.json", `{"compilerOptions": {"target": "es2020"}}`)

	report, err := d.Run(context.Background(), dir, []string{path}, []layers.ID{layers.IDConfig}, Options{
		SessionID: "test-session",
	})
	require.NoError(t, err)
	require.Len(t, report.Files, 1)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"strict": true`)
	assert.False(t, report.Files[0].Failed)
}

func TestRunDryRunLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	original := `{"compilerOptions": {"target": "es2020"}}`
	path := writeFile(t, dir, "tsconfig.json", original)

	report, err := d.Run(context.Background(), dir, []string{path}, []layers.ID{layers.IDConfig}, Options{
		DryRun: true, SessionID: "dry-run-session",
	})
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(got))

	require.Len(t, report.Files, 1)
	require.NotEmpty(t, report.Files[0].LayerResults)
	assert.True(t, report.Files[0].LayerResults[0].Changed())
}

// TestRunProcessesFilesConcurrently exercises the errgroup-based fan-out
// across enough files to exceed DefaultConcurrency, confirming every
// file still gets its own independent report in the right slot despite
// running on shared Orchestrator/parser/backup state.
func TestRunProcessesFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	d := newTestDriver(t, dir)

	const fileCount = 20
	paths := make([]string, fileCount)
	for i := 0; i < fileCount; i++ {
		paths[i] = writeFile(t, dir, filepath.Base(dir)+"-"+string(rune('a'+i))+".tsconfig.json",
			`{"compilerOptions": {}}`)
	}

	report, err := d.Run(context.Background(), dir, paths, []layers.ID{layers.IDConfig}, Options{
		SessionID: "concurrent-session",
	})
	require.NoError(t, err)
	require.Len(t, report.Files, fileCount)

	gotPaths := make([]string, fileCount)
	for i, f := range report.Files {
		gotPaths[i] = f.Path
		assert.False(t, f.Failed)
	}
	if diff := cmp.Diff(paths, gotPaths); diff != "" {
		t.Errorf("report.Files order mismatch (-want +got):\n%s", diff)
	}
}

func TestRelOrAbs(t *testing.T) {
	rel := relOrAbs("/a/b", "/a/b/c/d.ts")
	assert.Equal(t, filepath.Join("c", "d.ts"), rel)

	abs := relOrAbs("", "not-a-child-of-root")
	assert.Equal(t, "not-a-child-of-root", abs)
}

func TestDefaultSessionIDIsUnique(t *testing.T) {
	a := defaultSessionID()
	b := defaultSessionID()
	assert.NotEqual(t, a, b)
}
