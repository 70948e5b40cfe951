package layers

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
)

// SSRHydrationGuardLayer wraps direct references to browser-only globals
// (localStorage, window, document) in a `typeof window !== "undefined"`
// guard so server-rendered code doesn't crash during SSR.
type SSRHydrationGuardLayer struct{ base }

// NewSSRHydrationGuardLayer constructs layer 4.
func NewSSRHydrationGuardLayer() *SSRHydrationGuardLayer {
	return &SSRHydrationGuardLayer{base{id: IDSSRHydrationGuard, name: "ssr-hydration-guard"}}
}

func (l *SSRHydrationGuardLayer) HasFallback() bool { return true }

// browserGlobalCallRe matches a bare `localStorage.<member>(...)` or
// `sessionStorage.<member>(...)` call — the common, high-value case —
// without already being inside a typeof guard.
var browserGlobalCallRe = regexp.MustCompile(`\b(localStorage|sessionStorage)\.(\w+)\(([^)]*)\)`)

func (l *SSRHydrationGuardLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := wrapBrowserGlobals(content)
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "wrapped browser-only global access in SSR guard"}},
	}, nil
}

func (l *SSRHydrationGuardLayer) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	return l.Transform(ctx, content, lctx)
}

func wrapBrowserGlobals(content []byte) ([]byte, int) {
	var result bytes.Buffer
	remaining := content
	changes := 0

	for {
		loc := browserGlobalCallRe.FindSubmatchIndex(remaining)
		if loc == nil {
			result.Write(remaining)
			break
		}

		matchStart, matchEnd := loc[0], loc[1]
		already := alreadyGuarded(remaining[:matchStart])
		if already {
			result.Write(remaining[:matchEnd])
			remaining = remaining[matchEnd:]
			continue
		}

		global := string(remaining[loc[2]:loc[3]])
		member := string(remaining[loc[4]:loc[5]])
		args := string(remaining[loc[6]:loc[7]])

		guarded := fmt.Sprintf(`typeof window !== "undefined" ? %s.%s(%s) : null`, global, member, args)
		result.Write(remaining[:matchStart])
		result.WriteString(guarded)
		remaining = remaining[matchEnd:]
		changes++
	}
	return result.Bytes(), changes
}

// alreadyGuarded checks whether the nearest preceding `typeof window`
// check on the same line already covers this reference, to keep the
// layer idempotent across re-runs.
func alreadyGuarded(prefix []byte) bool {
	lineStart := bytes.LastIndexByte(prefix, '\n') + 1
	return bytes.Contains(prefix[lineStart:], []byte(`typeof window`))
}
