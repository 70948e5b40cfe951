package regression

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsEmptyBattery(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Version)
	assert.Empty(t, b.Tasks)
}

func TestAppendTaskReplacesSameID(t *testing.T) {
	b := &Battery{Version: 1}
	b.AppendTask(Task{ID: "t1", Command: "echo 1"})
	b.AppendTask(Task{ID: "t1", Command: "echo 2"})

	require.Len(t, b.Tasks, 1)
	assert.Equal(t, "echo 2", b.Tasks[0].Command)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	b := &Battery{Version: 1, Tasks: []Task{{ID: "t1", Type: "shell", Command: "echo hi"}}}
	path := filepath.Join(t.TempDir(), "battery.yaml")
	require.NoError(t, b.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Tasks, 1)
	assert.Equal(t, "echo hi", loaded.Tasks[0].Command)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	b := &Battery{Version: 1, Tasks: []Task{
		{ID: "ok", Type: "shell", Command: "true"},
		{ID: "fail", Type: "shell", Command: "false"},
		{ID: "never", Type: "shell", Command: "true"},
	}}

	results, err := Run(context.Background(), b, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
}

func TestRunRejectsUnsupportedTaskType(t *testing.T) {
	b := &Battery{Version: 1, Tasks: []Task{{ID: "t1", Type: "http"}}}
	results, err := Run(context.Background(), b, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "unsupported task type")
}
