package layers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// FrameworkMigrationLayer migrates React 17-style `ReactDOM.render(el,
// container)` calls to React 18's `createRoot(container).render(el)`,
// introducing a collision-safe `root`/`root1`/`root2`/... identifier per
// call site.
type FrameworkMigrationLayer struct{ base }

// NewFrameworkMigrationLayer constructs layer 5.
func NewFrameworkMigrationLayer() *FrameworkMigrationLayer {
	return &FrameworkMigrationLayer{base{id: IDFrameworkMigration, name: "framework-migration"}}
}

const reactDOMRenderCall = "ReactDOM.render("

func (l *FrameworkMigrationLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	out, changes := migrateReactDOMRender(content)
	if changes == 0 {
		return noop(l.id, content), nil
	}
	return Result{
		LayerID: l.id, Success: true, ChangeCount: changes,
		OriginalCode: content, Code: out,
		Diagnostics: []Diagnostic{{Kind: DiagAccepted, Message: "migrated ReactDOM.render to createRoot().render"}},
	}, nil
}

func migrateReactDOMRender(content []byte) ([]byte, int) {
	var result bytes.Buffer
	remaining := content
	changes := 0
	nextSuffix := 0
	used := collectUsedRootNames(content)

	for {
		idx := bytes.Index(remaining, []byte(reactDOMRenderCall))
		if idx < 0 {
			result.Write(remaining)
			break
		}

		argsStart := idx + len(reactDOMRenderCall)
		argsEnd, ok := matchParen(remaining, argsStart-1)
		if !ok {
			// Unbalanced parens; stop rather than risk corrupting output.
			result.Write(remaining)
			break
		}

		args, ok := splitTopLevelArgs(remaining[argsStart:argsEnd])
		if !ok || len(args) != 2 {
			// Not the simple two-arg call shape this layer understands.
			result.Write(remaining[:argsEnd+1])
			remaining = remaining[argsEnd+1:]
			continue
		}

		element := string(bytes.TrimSpace(args[0]))
		container := string(bytes.TrimSpace(args[1]))

		var name string
		for {
			name = rootName(nextSuffix)
			nextSuffix++
			if !used[name] {
				break
			}
		}
		used[name] = true

		replacement := fmt.Sprintf("const %s = createRoot(%s);\n%s.render(%s)", name, container, name, element)
		result.Write(remaining[:idx])
		result.WriteString(replacement)
		remaining = remaining[argsEnd+1:]
		changes++
	}

	return result.Bytes(), changes
}

func rootName(suffix int) string {
	if suffix == 0 {
		return "root"
	}
	return "root" + strconv.Itoa(suffix)
}

func collectUsedRootNames(content []byte) map[string]bool {
	used := make(map[string]bool)
	for _, name := range []string{"root"} {
		if bytes.Contains(content, []byte(name)) {
			used[name] = true
		}
	}
	return used
}

// matchParen returns the index of the ')' balancing the '(' at openIdx.
func matchParen(buf []byte, openIdx int) (int, bool) {
	depth := 0
	for i := openIdx; i < len(buf); i++ {
		switch buf[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// splitTopLevelArgs splits buf on commas that aren't nested inside
// parens/brackets/braces, as needed for `ReactDOM.render(<JSX/>, el)`
// where the first argument itself contains commas and nested parens.
func splitTopLevelArgs(buf []byte) ([][]byte, bool) {
	var args [][]byte
	depth := 0
	start := 0
	for i, b := range buf {
		switch b {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}':
			depth--
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, buf[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, buf[start:])
	return args, depth == 0
}
