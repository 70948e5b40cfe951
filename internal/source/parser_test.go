package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	cases := map[string]Language{
		"App.tsx":            LangTSX,
		"index.ts":           LangTS,
		"util.js":            LangJS,
		"Comp.jsx":           LangJSX,
		"package.json":       LangJSON,
		"ci.yaml":            LangYAML,
		"yarn.lock":          LangLock,
		"pnpm-lock.yaml":     LangLock,
		"package-lock.json":  LangLock,
		"README.md":          LangUnknown,
	}
	for path, want := range cases {
		assert.Equal(t, want, DetectLanguage(path), path)
	}
}

func TestParseTSXAndPrintRoundTrip(t *testing.T) {
	p := NewParser()
	src := []byte("const x: number = 1;\nexport default function App() { return <div>{x}</div>; }\n")

	tree, err := p.Parse(context.Background(), "App.tsx", src)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, LangTSX, tree.Language())
	assert.NotNil(t, tree.Root())

	out, err := Print(tree, nil)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestPrintAppliesReplacement(t *testing.T) {
	p := NewParser()
	src := []byte("const x = 1;\n")
	tree, err := p.Parse(context.Background(), "a.js", src)
	require.NoError(t, err)
	defer tree.Close()

	// replace "1" with "2"
	idx := len("const x = ")
	out, err := Print(tree, []Replacement{{Start: idx, End: idx + 1, With: []byte("2")}})
	require.NoError(t, err)
	assert.Equal(t, "const x = 2;\n", string(out))
}

func TestPrintRejectsOverlap(t *testing.T) {
	p := NewParser()
	src := []byte("const x = 1;\n")
	tree, err := p.Parse(context.Background(), "a.js", src)
	require.NoError(t, err)
	defer tree.Close()

	_, err = Print(tree, []Replacement{
		{Start: 0, End: 5, With: []byte("x")},
		{Start: 3, End: 6, With: []byte("y")},
	})
	assert.ErrorIs(t, err, ErrPrint)
}

func TestParseJSONValidatesAndDecomposes(t *testing.T) {
	src := []byte(`{"name": "app", "scripts": {"test": "jest"}}`)
	tree, err := parseJSON("package.json", src)
	require.NoError(t, err)
	assert.Equal(t, "Program", NodeKind(tree.Root()))

	decomposed, err := DecomposeJSON(src)
	require.NoError(t, err)
	assert.Equal(t, "Object", decomposed.Kind())
	require.Len(t, decomposed.NamedChildren(), 2)

	nameProp := decomposed.NamedChildren()[0].(*jsonNode)
	assert.Equal(t, "name", nameProp.PropertyName())
}

func TestParseJSONRejectsInvalid(t *testing.T) {
	_, err := parseJSON("bad.json", []byte(`{"a": }`))
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseYAML(t *testing.T) {
	src := []byte("name: CI\non: [push]\n")
	tree, err := parseYAML("workflow.yaml", src)
	require.NoError(t, err)
	assert.Equal(t, LangYAML, tree.Language())
}

func TestOpaqueLockfile(t *testing.T) {
	p := NewParser()
	src := []byte("# yarn lockfile v1\n")
	tree, err := p.Parse(context.Background(), "yarn.lock", src)
	require.NoError(t, err)
	assert.Equal(t, "Program", NodeKind(tree.Root()))
}
