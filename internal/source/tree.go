package source

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a parsed SourceArtifact: the language, the original bytes, and
// either a native tree-sitter tree (TS/TSX/JS) or a shim root Node
// (JSON/YAML/lock). Trees are not safe for concurrent use.
type Tree struct {
	lang    Language
	path    string
	content []byte

	sTree *sitter.Tree // non-nil for TS/TSX/JS
	root  Node         // always set (wraps sTree.RootNode() when sTree != nil)
}

// Language returns the tree's source language.
func (t *Tree) Language() Language { return t.lang }

// Path returns the file path the tree was parsed from.
func (t *Tree) Path() string { return t.path }

// Content returns the original source bytes the tree was parsed from.
// Printers reference spans of this slice directly; callers must not
// mutate it.
func (t *Tree) Content() []byte { return t.content }

// Root returns the tree's root Node.
func (t *Tree) Root() Node { return t.root }

// NodeKind returns a node's grammar-level kind string (e.g.
// "jsx_element", "lexical_declaration", "object" for the JSON shim).
func NodeKind(n Node) string {
	if n == nil {
		return ""
	}
	return n.Kind()
}

// Close releases the underlying tree-sitter tree, if any. Safe to call
// on shim trees (no-op).
func (t *Tree) Close() {
	if t.sTree != nil {
		t.sTree.Close()
	}
}

// Text returns the source bytes spanned by n. The returned slice aliases
// the tree's Content and must not be mutated.
func (t *Tree) Text(n Node) []byte {
	if n == nil {
		return nil
	}
	return t.content[n.StartByte():n.EndByte()]
}

func opaqueTree(lang Language, path string, content []byte) *Tree {
	lit := &literalNode{kind: "Program", start: 0, end: len(content)}
	return &Tree{lang: lang, path: path, content: content, root: lit}
}

// NewOpaqueTree builds a bare Tree over content with no parsed structure,
// for callers (layers applying edits computed via DecomposeJSON's own
// byte offsets, for instance) that only need Print's splicing and
// already have their own Node tree to navigate.
func NewOpaqueTree(lang Language, path string, content []byte) *Tree {
	return opaqueTree(lang, path, content)
}

// literalNode is a single-node tree used for opaque artifacts (lockfiles)
// that no layer inspects structurally.
type literalNode struct {
	kind  string
	start int
	end   int
}

func (l *literalNode) Kind() string             { return l.kind }
func (l *literalNode) StartByte() int            { return l.start }
func (l *literalNode) EndByte() int              { return l.end }
func (l *literalNode) NamedChildren() []Node     { return nil }
func (l *literalNode) FieldName(string) Node     { return nil }
