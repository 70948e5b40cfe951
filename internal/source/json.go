package source

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// jsonNode is a minimal structural shim over a hand-walked JSON document,
// carrying real byte offsets so Replacements can target a specific key's
// value (the config layer rewrites package.json / tsconfig.json fields
// this way without re-serializing the whole file).
type jsonNode struct {
	kind     string // "Program", "Object", "Array", "Property", "Literal"
	start    int
	end      int
	name     string // property key, when kind == "Property"
	children []Node
}

func (j *jsonNode) Kind() string          { return j.kind }
func (j *jsonNode) StartByte() int        { return j.start }
func (j *jsonNode) EndByte() int          { return j.end }
func (j *jsonNode) NamedChildren() []Node { return j.children }
func (j *jsonNode) FieldName(string) Node { return nil }

// PropertyName returns the key of a "Property" node, empty otherwise.
func (j *jsonNode) PropertyName() string { return j.name }

// PropertyName returns n's JSON property key if n came from DecomposeJSON
// and is a "Property" node, or "" otherwise. Exported so layers outside
// this package can navigate a decomposed JSON tree without reaching
// into the unexported jsonNode type.
func PropertyName(n Node) string {
	if j, ok := n.(*jsonNode); ok {
		return j.PropertyName()
	}
	return ""
}

// parseJSON validates content is well-formed JSON via encoding/json (the
// same round-trip technique the Validator's first pass uses for every
// language) and wraps the whole file as a single literal span for
// node_kind purposes; layers needing precise byte offsets call
// DecomposeJSON.
func parseJSON(path string, content []byte) (*Tree, error) {
	var v interface{}
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	root := &jsonNode{kind: "Program", start: 0, end: len(content)}
	return &Tree{lang: LangJSON, path: path, content: content, root: root}, nil
}

// DecomposeJSON walks content by hand to build a jsonNode tree whose
// Object/Array/Property/Literal nodes carry accurate byte offsets.
// Content must already be known-valid JSON (callers decompose only
// after parseJSON succeeded).
func DecomposeJSON(content []byte) (Node, error) {
	s := &jsonScanner{buf: content}
	s.skipSpace()
	n, err := s.value()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return n, nil
}

type jsonScanner struct {
	buf []byte
	pos int
}

func (s *jsonScanner) skipSpace() {
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *jsonScanner) value() (*jsonNode, error) {
	s.skipSpace()
	if s.pos >= len(s.buf) {
		return nil, fmt.Errorf("unexpected end of JSON input")
	}
	switch s.buf[s.pos] {
	case '{':
		return s.object()
	case '[':
		return s.array()
	case '"':
		return s.literalSpan("Literal")
	default:
		return s.scalarLiteral()
	}
}

func (s *jsonScanner) object() (*jsonNode, error) {
	start := s.pos
	s.pos++ // '{'
	var children []Node
	s.skipSpace()
	for s.pos < len(s.buf) && s.buf[s.pos] != '}' {
		propStart := s.pos
		s.skipSpace()
		keyNode, err := s.literalSpan("Literal")
		if err != nil {
			return nil, err
		}
		key := ""
		if len(keyNode.children) == 0 {
			key = unquoteBest(s.buf[keyNode.start:keyNode.end])
		}
		s.skipSpace()
		if s.pos >= len(s.buf) || s.buf[s.pos] != ':' {
			return nil, fmt.Errorf("expected ':' at byte %d", s.pos)
		}
		s.pos++
		val, err := s.value()
		if err != nil {
			return nil, err
		}
		children = append(children, &jsonNode{
			kind: "Property", start: propStart, end: val.end, name: key,
			children: []Node{val},
		})
		s.skipSpace()
		if s.pos < len(s.buf) && s.buf[s.pos] == ',' {
			s.pos++
			s.skipSpace()
			continue
		}
		break
	}
	if s.pos >= len(s.buf) || s.buf[s.pos] != '}' {
		return nil, fmt.Errorf("expected '}' at byte %d", s.pos)
	}
	s.pos++
	return &jsonNode{kind: "Object", start: start, end: s.pos, children: children}, nil
}

func (s *jsonScanner) array() (*jsonNode, error) {
	start := s.pos
	s.pos++ // '['
	var children []Node
	s.skipSpace()
	for s.pos < len(s.buf) && s.buf[s.pos] != ']' {
		val, err := s.value()
		if err != nil {
			return nil, err
		}
		children = append(children, val)
		s.skipSpace()
		if s.pos < len(s.buf) && s.buf[s.pos] == ',' {
			s.pos++
			s.skipSpace()
			continue
		}
		break
	}
	if s.pos >= len(s.buf) || s.buf[s.pos] != ']' {
		return nil, fmt.Errorf("expected ']' at byte %d", s.pos)
	}
	s.pos++
	return &jsonNode{kind: "Array", start: start, end: s.pos, children: children}, nil
}

func (s *jsonScanner) literalSpan(kind string) (*jsonNode, error) {
	start := s.pos
	if s.pos >= len(s.buf) || s.buf[s.pos] != '"' {
		return nil, fmt.Errorf("expected string at byte %d", s.pos)
	}
	s.pos++
	for s.pos < len(s.buf) {
		r := s.buf[s.pos]
		if r == '\\' {
			s.pos += 2
			continue
		}
		if r == '"' {
			s.pos++
			return &jsonNode{kind: kind, start: start, end: s.pos}, nil
		}
		_, size := utf8.DecodeRune(s.buf[s.pos:])
		if size == 0 {
			size = 1
		}
		s.pos += size
	}
	return nil, fmt.Errorf("unterminated string at byte %d", start)
}

func (s *jsonScanner) scalarLiteral() (*jsonNode, error) {
	start := s.pos
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case ',', '}', ']', ' ', '\t', '\n', '\r':
			if s.pos == start {
				return nil, fmt.Errorf("unexpected token at byte %d", s.pos)
			}
			return &jsonNode{kind: "Literal", start: start, end: s.pos}, nil
		default:
			s.pos++
		}
	}
	if s.pos == start {
		return nil, fmt.Errorf("unexpected end of JSON input")
	}
	return &jsonNode{kind: "Literal", start: start, end: s.pos}, nil
}

func unquoteBest(b []byte) string {
	var out string
	if err := json.Unmarshal(b, &out); err != nil {
		return string(b)
	}
	return out
}
