package layers

import (
	"bytes"
	"context"
	"regexp"

	"neurolint/internal/source"
)

// ConfigLayer fixes common tsconfig.json omissions — currently a
// missing `"strict": true` under compilerOptions, the single
// highest-value default for this layer.
type ConfigLayer struct{ base }

// NewConfigLayer constructs layer 1.
func NewConfigLayer() *ConfigLayer {
	return &ConfigLayer{base{id: IDConfig, name: "config"}}
}

func (l *ConfigLayer) HasFallback() bool { return true }

func (l *ConfigLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	if !isTSConfig(lctx.FilePath) {
		return noop(l.id, content), nil
	}

	root, err := source.DecomposeJSON(content)
	if err != nil {
		// Malformed JSON is not this layer's problem to fix; leave as-is
		// and let the fallback (or a later run) deal with it.
		return noop(l.id, content), nil
	}

	compilerOpts := findProperty(root, "compilerOptions")
	if compilerOpts == nil || len(compilerOpts.NamedChildren()) == 0 {
		return noop(l.id, content), nil
	}
	optsObj := compilerOpts.NamedChildren()[0]
	if findProperty(optsObj, "strict") != nil {
		return noop(l.id, content), nil
	}

	insertAt := optsObj.StartByte() + 1 // right after '{'
	edit := source.Replacement{Start: insertAt, End: insertAt, With: []byte(`"strict": true, `)}
	out, err := source.Print(treeFor(lctx.FilePath, content), []source.Replacement{edit})
	if err != nil {
		return Result{LayerID: l.id, Success: false, OriginalCode: content, Code: content, Error: err}, nil
	}

	return Result{
		LayerID: l.id, Success: true, ChangeCount: 1,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "inserted compilerOptions.strict = true"}},
	}, nil
}

var tsconfigStrictRe = regexp.MustCompile(`"compilerOptions"\s*:\s*\{`)

func (l *ConfigLayer) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	if !isTSConfig(lctx.FilePath) || bytes.Contains(content, []byte(`"strict"`)) {
		return noop(l.id, content), nil
	}
	loc := tsconfigStrictRe.FindIndex(content)
	if loc == nil {
		return noop(l.id, content), nil
	}
	out := make([]byte, 0, len(content)+16)
	out = append(out, content[:loc[1]]...)
	out = append(out, []byte(`"strict": true, `)...)
	out = append(out, content[loc[1]:]...)
	return Result{
		LayerID: l.id, Success: true, ChangeCount: 1,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagFallbackAccepted, Message: "inserted compilerOptions.strict = true via regex"}},
	}, nil
}

func isTSConfig(path string) bool {
	return hasSuffixFold(path, "tsconfig.json")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

// findProperty locates the first "Property" descendant of root whose
// key equals name, searching only the immediate children of the
// nearest enclosing object (not recursively across the whole tree).
func findProperty(n source.Node, name string) source.Node {
	for _, c := range n.NamedChildren() {
		if c.Kind() == "Property" && source.PropertyName(c) == name {
			return c
		}
	}
	return nil
}

// treeFor wraps content in a bare Tree so source.Print has something to
// splice against. Layers only need Print's splicing, not a parsed tree,
// for JSON-shim edits computed via DecomposeJSON's own byte offsets.
func treeFor(path string, content []byte) *source.Tree {
	return source.NewOpaqueTree(source.LangJSON, path, content)
}
