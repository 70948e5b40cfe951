package astdiff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolint/internal/source"
)

func parse(t *testing.T, path string, content []byte) *source.Tree {
	t.Helper()
	p := source.NewParser()
	tree, err := p.Parse(context.Background(), path, content)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func TestDiffDetectsWrap(t *testing.T) {
	before := parse(t, "a.js", []byte("const v = localStorage.getItem('x');\n"))
	after := parse(t, "a.js", []byte("const v = typeof window !== \"undefined\" ? localStorage.getItem('x') : null;\n"))

	edits := Diff(before, after)
	require.NotEmpty(t, edits)

	foundWrap := false
	for _, e := range edits {
		if e.Kind == EditWrap {
			foundWrap = true
		}
	}
	assert.True(t, foundWrap, "expected a wrap edit, got %+v", edits)
}

func TestDiffNoChangesProducesNoEdits(t *testing.T) {
	src := []byte("function f() { return 1; }\n")
	before := parse(t, "a.js", src)
	after := parse(t, "a.js", src)

	edits := Diff(before, after)
	assert.Empty(t, edits)
}

func TestDiffOrdersDeepestFirst(t *testing.T) {
	before := parse(t, "a.js", []byte("function f() { return 1; }\n"))
	after := parse(t, "a.js", []byte("function f() { return 2; }\n"))

	edits := Diff(before, after)
	require.NotEmpty(t, edits)
	for i := 1; i < len(edits); i++ {
		assert.True(t, edits[i-1].Depth >= edits[i].Depth || edits[i-1].Path <= edits[i].Path)
	}
}
