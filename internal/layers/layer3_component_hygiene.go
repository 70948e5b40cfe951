package layers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
)

// ComponentHygieneLayer injects a `key` prop into JSX elements rendered
// from `.map()` callbacks that lack one, and hoists a misplaced
// `'use client'` directive to the top of the file.
type ComponentHygieneLayer struct{ base }

// NewComponentHygieneLayer constructs layer 3.
func NewComponentHygieneLayer() *ComponentHygieneLayer {
	return &ComponentHygieneLayer{base{id: IDComponentHygiene, name: "component-hygiene"}}
}

func (l *ComponentHygieneLayer) HasFallback() bool { return true }

// mapCallbackRe captures `<items>.map(<param> => <` so the opening tag
// immediately following can be checked for (and given) a key attribute.
// It purposely only matches the simple single-line arrow-body case.
var mapCallbackRe = regexp.MustCompile(`\.map\(\s*(\w+)\s*(?:,\s*\w+)?\s*=>\s*<([A-Za-z][\w.]*)`)

func (l *ComponentHygieneLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := injectMapKeys(content)
	out, moved := hoistUseClient(out)
	if moved {
		changes++
	}
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "injected JSX keys / hoisted use client"}},
	}, nil
}

func (l *ComponentHygieneLayer) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := injectMapKeys(content)
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagFallbackAccepted, Message: "injected JSX keys only"}},
	}, nil
}

func injectMapKeys(content []byte) ([]byte, int) {
	var result bytes.Buffer
	remaining := content
	changes := 0

	for {
		loc := mapCallbackRe.FindSubmatchIndex(remaining)
		if loc == nil {
			result.Write(remaining)
			break
		}
		tagEnd := loc[5] // end of the captured tag name, relative to remaining
		param := string(remaining[loc[2]:loc[3]])

		closeIdx := bytes.IndexByte(remaining[tagEnd:], '>')
		if closeIdx < 0 {
			// No closing '>' found at all; stop scanning rather than loop.
			result.Write(remaining)
			break
		}
		openingTag := remaining[tagEnd : tagEnd+closeIdx]

		if bytes.Contains(openingTag, []byte("key=")) {
			result.Write(remaining[:tagEnd+closeIdx+1])
			remaining = remaining[tagEnd+closeIdx+1:]
			continue
		}

		keyExpr := fmt.Sprintf(` key={%s.id ?? %s}`, param, param)
		result.Write(remaining[:tagEnd])
		result.WriteString(keyExpr)
		result.Write(remaining[tagEnd : tagEnd+closeIdx+1])
		remaining = remaining[tagEnd+closeIdx+1:]
		changes++
	}

	return result.Bytes(), changes
}

var useClientRe = regexp.MustCompile(`(?m)^['"]use client['"];?\s*\n`)

func hoistUseClient(content []byte) ([]byte, bool) {
	loc := useClientRe.FindIndex(content)
	if loc == nil {
		return content, false
	}
	if loc[0] == 0 {
		return content, false
	}
	directive := content[loc[0]:loc[1]]
	rest := make([]byte, 0, len(content))
	rest = append(rest, content[:loc[0]]...)
	rest = append(rest, content[loc[1]:]...)
	out := make([]byte, 0, len(content))
	out = append(out, directive...)
	out = append(out, rest...)
	return out, true
}
