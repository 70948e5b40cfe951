package source

import sitter "github.com/smacker/go-tree-sitter"

// Node is the language-agnostic view over a parsed tree's nodes, uniform
// across tree-sitter's native nodes (TS/TSX/JS) and the JSON/YAML shim
// trees. This is what node_kind and the AST Diff Engine walk.
type Node interface {
	Kind() string
	StartByte() int
	EndByte() int
	NamedChildren() []Node
	FieldName(name string) Node
}

// sitterNode adapts *sitter.Node to the Node interface.
type sitterNode struct {
	n *sitter.Node
}

func wrapSitter(n *sitter.Node) Node {
	if n == nil {
		return nil
	}
	return sitterNode{n: n}
}

func (s sitterNode) Kind() string    { return s.n.Type() }
func (s sitterNode) StartByte() int  { return int(s.n.StartByte()) }
func (s sitterNode) EndByte() int    { return int(s.n.EndByte()) }
func (s sitterNode) FieldName(name string) Node {
	return wrapSitter(s.n.ChildByFieldName(name))
}

func (s sitterNode) NamedChildren() []Node {
	count := int(s.n.NamedChildCount())
	out := make([]Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, wrapSitter(s.n.NamedChild(i)))
	}
	return out
}
