// Package astdiff implements the structural AST Diff Engine: given a
// before-tree and after-tree for the same file, it
// produces a minimal, classified list of Edits describing what changed,
// for the Adaptive Layer to learn from and for the Transformation Logger
// to summarize.
//
// This is a different diff from internal/diff: internal/diff produces
// line-level text hunks for human-facing before/after snippets;
// astdiff walks two parsed trees structurally and classifies mismatches
// by node kind, which is what a confidence-weighted rule needs in order
// to generalize ("wrap bare identifier X in a window-guard") rather than
// just recording "line 12 changed".
package astdiff

import (
	"neurolint/internal/source"
)

// EditKind tags the five closed Edit variants.
type EditKind string

const (
	EditAddition     EditKind = "addition"
	EditRemoval      EditKind = "removal"
	EditModification EditKind = "modification"
	EditWrap         EditKind = "wrap"
	EditAttributeAdd EditKind = "attribute_add"
)

// Edit describes one structural change between a before-node and an
// after-node (or the absence of one, for pure additions/removals).
type Edit struct {
	Kind     EditKind
	Path     string // dotted node-kind path from root, e.g. "Program.0.jsx_element"
	Before   string // printed text of the before-node, "" for additions
	After    string // printed text of the after-node, "" for removals
	NodeKind string // kind of the node most representative of this edit
	Depth    int    // tree depth of the edit, used for tie-breaking
}

// Diff computes the structural edits between before and after, which
// must be trees of the same Language parsed from logically-the-same
// file (before transformation and after transformation).
func Diff(before, after *source.Tree) []Edit {
	d := &differ{before: before, after: after}
	d.walk(before.Root(), after.Root(), "Program", 0)
	return sortEdits(d.edits)
}

type differ struct {
	before *source.Tree
	after  *source.Tree
	edits  []Edit
}

func (d *differ) walk(b, a source.Node, path string, depth int) {
	switch {
	case b == nil && a == nil:
		return
	case b == nil:
		d.edits = append(d.edits, Edit{
			Kind: EditAddition, Path: path, After: string(d.after.Text(a)),
			NodeKind: a.Kind(), Depth: depth,
		})
		return
	case a == nil:
		d.edits = append(d.edits, Edit{
			Kind: EditRemoval, Path: path, Before: string(d.before.Text(b)),
			NodeKind: b.Kind(), Depth: depth,
		})
		return
	}

	beforeText := string(d.before.Text(b))
	afterText := string(d.after.Text(a))

	if beforeText == afterText && b.Kind() == a.Kind() {
		d.walkChildren(b, a, path, depth)
		return
	}

	if b.Kind() != a.Kind() {
		d.edits = append(d.edits, classify(path, beforeText, afterText, b.Kind(), a.Kind(), depth))
		return
	}

	// Same kind, different text: recurse into children to find the
	// smallest differing subtree rather than reporting the whole node.
	bc, ac := b.NamedChildren(), a.NamedChildren()
	if len(bc) == 0 && len(ac) == 0 {
		d.edits = append(d.edits, Edit{
			Kind: EditModification, Path: path, Before: beforeText, After: afterText,
			NodeKind: a.Kind(), Depth: depth,
		})
		return
	}
	d.walkChildren(b, a, path, depth)
}

func (d *differ) walkChildren(b, a source.Node, path string, depth int) {
	bc, ac := b.NamedChildren(), a.NamedChildren()
	n := len(bc)
	if len(ac) > n {
		n = len(ac)
	}
	for i := 0; i < n; i++ {
		var bn, an source.Node
		if i < len(bc) {
			bn = bc[i]
		}
		if i < len(ac) {
			an = ac[i]
		}
		childPath := path + "." + indexKind(an, bn, i)
		d.walk(bn, an, childPath, depth+1)
	}
}

func indexKind(a, b source.Node, i int) string {
	if a != nil {
		return a.Kind()
	}
	if b != nil {
		return b.Kind()
	}
	return itoa(i)
}

// classify applies a wrapping heuristic: if the after text
// literally contains the before text as a substring, the edit is a
// structural wrap (a guard, a provider, an extra JSX element) rather
// than an unrelated replacement. A same-kind attribute-bearing node
// whose after text is before text plus a new `name="..."` / `name={...}`
// fragment is classified as an attribute addition.
func classify(path, before, after, beforeKind, afterKind string, depth int) Edit {
	kind := EditModification
	switch {
	case before == "":
		kind = EditAddition
	case after == "":
		kind = EditRemoval
	case containsAsSubstring(after, before):
		if isAttributeAddition(before, after) {
			kind = EditAttributeAdd
		} else {
			kind = EditWrap
		}
	}
	return Edit{
		Kind: kind, Path: path, Before: before, After: after,
		NodeKind: afterKind, Depth: depth,
	}
}

func containsAsSubstring(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return indexOf(haystack, needle) >= 0
}

// isAttributeAddition reports whether after looks like before with one
// extra `name=value` JSX attribute spliced into the same opening tag —
// a narrower case of "wrap" the Adaptive Layer treats separately because
// the learned rule it produces is an attribute insertion, not a
// wrapper template.
func isAttributeAddition(before, after string) bool {
	if len(after) <= len(before) {
		return false
	}
	if before == "" {
		return false
	}
	return before[0] == '<' && after[0] == '<' &&
		len(before) > 1 && before[:2] == after[:2]
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 || m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// sortEdits applies a tie-break policy: deepest-node-first,
// then left-to-right (by Path, which is built in traversal order).
func sortEdits(edits []Edit) []Edit {
	out := make([]Edit, len(edits))
	copy(out, edits)
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && less(out[j], out[j-1]) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func less(a, b Edit) bool {
	if a.Depth != b.Depth {
		return a.Depth > b.Depth // deepest first
	}
	return a.Path < b.Path // then left-to-right
}
