package layers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"neurolint/internal/regression"
)

// TestScaffoldingLayer emits a co-located Testing-Library-style test
// stub for newly-touched components and registers a regression task to
// run it. Unlike layers 1-5 it does not rewrite the file's own code —
// its mutation is the new test file and the regression battery entry,
// both explicit, bounded I/O the layer contract allows ("may suspend on
// I/O only").
type TestScaffoldingLayer struct{ base }

// NewTestScaffoldingLayer constructs layer 6.
func NewTestScaffoldingLayer() *TestScaffoldingLayer {
	return &TestScaffoldingLayer{base{id: IDTestScaffolding, name: "test-scaffolding"}}
}

func (l *TestScaffoldingLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	if !isComponentFile(lctx.FilePath) || !wasTouchedThisRun(lctx) {
		return noop(l.id, content), nil
	}

	testPath := testStubPath(lctx.FilePath)
	componentName := componentNameFromPath(lctx.FilePath)

	if lctx.DryRun {
		return Result{
			LayerID: l.id, Success: true, ChangeCount: 0,
			OriginalCode: content, Code: content,
			Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: fmt.Sprintf("would scaffold %s (dry run)", testPath)}},
		}, nil
	}

	if _, err := os.Stat(testPath); err == nil {
		return noop(l.id, content), nil
	}

	stub := testStubSource(componentName)
	if err := os.WriteFile(testPath, []byte(stub), 0644); err != nil {
		return Result{LayerID: l.id, Success: false, OriginalCode: content, Code: content, Error: err}, nil
	}

	if err := appendRegressionTask(lctx.ProjectRoot, testPath); err != nil {
		return Result{LayerID: l.id, Success: false, OriginalCode: content, Code: content, Error: err}, nil
	}

	return Result{
		LayerID: l.id, Success: true, ChangeCount: 0,
		OriginalCode: content, Code: content,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: fmt.Sprintf("scaffolded %s", testPath)}},
	}, nil
}

// wasTouchedThisRun reports whether any earlier layer in this run
// actually changed this file; scaffolding only fires for files the
// pipeline touched, not every component in the tree.
func wasTouchedThisRun(lctx Context) bool {
	for _, r := range lctx.Prior.All() {
		if r.Changed() {
			return true
		}
	}
	return false
}

func isComponentFile(path string) bool {
	return strings.HasSuffix(path, ".tsx") && !strings.HasSuffix(path, ".test.tsx")
}

func testStubPath(componentPath string) string {
	ext := filepath.Ext(componentPath)
	base := strings.TrimSuffix(componentPath, ext)
	return base + ".test" + ext
}

func componentNameFromPath(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func testStubSource(componentName string) string {
	return fmt.Sprintf(`import { render, screen } from "@testing-library/react";
import %s from "./%s";

describe("%s", () => {
  it("renders without crashing", () => {
    render(<%s />);
    expect(screen.getByRole).toBeDefined();
  });
});
`, componentName, componentName, componentName, componentName)
}

func appendRegressionTask(projectRoot, testPath string) error {
	path := regression.DefaultBatteryPath(projectRoot)
	battery, err := regression.Load(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(projectRoot, testPath)
	if err != nil {
		rel = testPath
	}
	battery.AppendTask(regression.Task{
		ID:      "scaffold:" + rel,
		Type:    "shell",
		Command: fmt.Sprintf("npm test -- %s", rel),
	})
	return battery.Save(path)
}
