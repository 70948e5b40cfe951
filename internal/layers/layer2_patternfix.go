package layers

import (
	"context"
	"regexp"
)

// PatternFixLayer applies small, bounded textual pattern corrections:
// `var` declarations to `let`, and common HTML entities left in JSX
// text by copy-pasted markup.
type PatternFixLayer struct{ base }

// NewPatternFixLayer constructs layer 2.
func NewPatternFixLayer() *PatternFixLayer {
	return &PatternFixLayer{base{id: IDPatternFix, name: "pattern-fix"}}
}

func (l *PatternFixLayer) HasFallback() bool { return true }

var varDeclRe = regexp.MustCompile(`\bvar\b`)

var htmlEntities = map[string]string{
	"&nbsp;": " ",
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
}

func (l *PatternFixLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := applyPatternFixes(content)
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "applied pattern fixes"}},
	}, nil
}

// RegexFallback re-runs the same textual substitutions against the
// original input; this layer's transform is already regex-based, so the
// fallback exists mainly to satisfy the contract uniformly and to retry
// after a rejection without the var->let rewrite (which is the more
// invasive of the two fixes).
func (l *PatternFixLayer) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := replaceHTMLEntities(content)
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagFallbackAccepted, Message: "applied entity unescaping only"}},
	}, nil
}

func applyPatternFixes(content []byte) ([]byte, int) {
	out, n1 := replaceVarWithLet(content)
	out, n2 := replaceHTMLEntities(out)
	return out, n1 + n2
}

func replaceVarWithLet(content []byte) ([]byte, int) {
	n := 0
	out := varDeclRe.ReplaceAllFunc(content, func(m []byte) []byte {
		n++
		return []byte("let")
	})
	return out, n
}

func replaceHTMLEntities(content []byte) ([]byte, int) {
	out := string(content)
	n := 0
	for entity, repl := range htmlEntities {
		for {
			idx := indexOfString(out, entity)
			if idx < 0 {
				break
			}
			out = out[:idx] + repl + out[idx+len(entity):]
			n++
		}
	}
	return []byte(out), n
}

func indexOfString(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
