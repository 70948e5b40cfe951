// Package regression maintains the YAML-defined regression battery that
// the test-scaffolding layer (6) appends to: a list of shell tasks that
// exercise the tests it generates.
package regression

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Battery is a collection of regression tasks, persisted at
// .neurolint/regression-battery.yaml.
type Battery struct {
	Version int    `yaml:"version"`
	Tasks   []Task `yaml:"tasks"`
}

// Task is a single regression task. Only type=shell is supported.
type Task struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	Command    string `yaml:"command"`
	TimeoutSec int    `yaml:"timeout_sec,omitempty"`
}

// Result captures one task's execution outcome.
type Result struct {
	TaskID     string
	Success    bool
	Output     string
	Error      string
	DurationMs int64
}

// Load reads a battery YAML file, returning an empty Battery if it
// doesn't exist yet.
func Load(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Battery{Version: 1}, nil
		}
		return nil, fmt.Errorf("failed to read regression battery: %w", err)
	}
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse regression battery: %w", err)
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return &b, nil
}

// Save writes the battery back to path, creating parent directories as
// needed.
func (b *Battery) Save(path string) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal regression battery: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create regression battery directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write regression battery: %w", err)
	}
	return nil
}

// AppendTask adds task to the battery unless a task with the same ID
// already exists, in which case it replaces it in place.
func (b *Battery) AppendTask(task Task) {
	for i, t := range b.Tasks {
		if t.ID == task.ID {
			b.Tasks[i] = task
			return
		}
	}
	b.Tasks = append(b.Tasks, task)
}

// Run executes every task in order against workdir, stopping at the
// first failure to keep battery latency bounded.
func Run(ctx context.Context, b *Battery, workdir string) ([]Result, error) {
	if b == nil || len(b.Tasks) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(b.Tasks))
	for _, task := range b.Tasks {
		start := time.Now()
		t := strings.ToLower(strings.TrimSpace(task.Type))
		if t == "" {
			t = "shell"
		}

		res := Result{TaskID: task.ID}
		switch t {
		case "shell":
			timeout := time.Duration(task.TimeoutSec) * time.Second
			if timeout <= 0 {
				timeout = 5 * time.Minute
			}
			tctx, cancel := context.WithTimeout(ctx, timeout)
			out, err := runShell(tctx, task.Command, workdir)
			cancel()
			res.Output = out
			if err != nil {
				res.Error = err.Error()
			} else {
				res.Success = true
			}
		default:
			res.Error = fmt.Sprintf("unsupported task type: %s", task.Type)
		}

		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)
		if !res.Success {
			break
		}
	}
	return results, nil
}

func runShell(ctx context.Context, command, workdir string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("empty command")
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", command)
	} else {
		cmd = exec.CommandContext(ctx, "bash", "-lc", command)
	}
	if workdir != "" {
		cmd.Dir = workdir
	}

	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return string(out), ctx.Err()
	}
	if err != nil {
		return string(out), fmt.Errorf("command failed (%s): %w", command, err)
	}
	return string(out), nil
}

// DefaultBatteryPath returns the canonical battery path for a project root.
func DefaultBatteryPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".neurolint", "regression-battery.yaml")
}
