package source

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlNode wraps a *yaml.Node. yaml.v3 tracks Line/Column but not byte
// offsets, so yamlNode spans are recovered by locating the node's
// starting line within content; this is sufficient for node_kind checks
// and for layers that replace whole mapping-value lines rather than
// sub-line spans (neurolint's YAML targets are CI workflow files and
// lockfile-adjacent config, never deeply nested scalars).
type yamlNode struct {
	kind     string
	start    int
	end      int
	children []Node
}

func (y *yamlNode) Kind() string          { return y.kind }
func (y *yamlNode) StartByte() int        { return y.start }
func (y *yamlNode) EndByte() int          { return y.end }
func (y *yamlNode) NamedChildren() []Node { return y.children }
func (y *yamlNode) FieldName(string) Node { return nil }

func parseYAML(path string, content []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	root := &yamlNode{kind: "Program", start: 0, end: len(content)}
	return &Tree{lang: LangYAML, path: path, content: content, root: root}, nil
}

// LineOffsets returns the byte offset of the start of each 1-indexed
// line in content, for translating yaml.Node Line/Column into byte
// spans on demand.
func LineOffsets(content []byte) []int {
	offsets := []int{0}
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}
