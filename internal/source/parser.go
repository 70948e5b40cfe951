package source

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"neurolint/internal/logging"
)

// Parser parses SourceArtifacts into Trees. One Parser is safe for
// sequential reuse across files; tree-sitter's own *sitter.Parser is not
// goroutine-safe, so each parallel file worker owns its own Parser (see
// internal/driver).
type Parser struct {
	ts  *sitter.Parser
	tsx *sitter.Parser
	js  *sitter.Parser
}

// NewParser builds a Parser with the TypeScript, TSX and JavaScript
// grammars loaded.
func NewParser() *Parser {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())

	tsxP := sitter.NewParser()
	tsxP.SetLanguage(tsx.GetLanguage())

	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())

	return &Parser{ts: ts, tsx: tsxP, js: js}
}

// Parse parses content according to the language implied by path and
// returns a Tree. JSON and YAML use their own shim parsers (see json.go,
// yaml.go); lockfiles are wrapped as an opaque literal.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*Tree, error) {
	lang := DetectLanguage(path)
	switch lang {
	case LangTS:
		return p.parseWithSitter(ctx, p.ts, lang, path, content)
	case LangTSX, LangJSX:
		return p.parseWithSitter(ctx, p.tsx, lang, path, content)
	case LangJS:
		return p.parseWithSitter(ctx, p.js, lang, path, content)
	case LangJSON:
		return parseJSON(path, content)
	case LangYAML:
		return parseYAML(path, content)
	case LangLock:
		return opaqueTree(lang, path, content), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}
}

func (p *Parser) parseWithSitter(ctx context.Context, parser *sitter.Parser, lang Language, path string, content []byte) (*Tree, error) {
	timer := logging.StartTimer(logging.CategoryParser, "parse:"+path)
	defer timer.Stop()

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.ParserError("parse failed for %s: %v", path, err)
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	if tree.RootNode().HasError() {
		logging.ParserDebug("parse tree for %s contains ERROR nodes", path)
	}

	return &Tree{
		lang:    lang,
		path:    path,
		content: content,
		sTree:   tree,
		root:    tree.RootNode(),
	}, nil
}

// Close releases all grammar resources. Call once the Parser is no
// longer needed (e.g. when a driver worker exits).
func (p *Parser) Close() {
	// *sitter.Parser has no explicit Close in this binding; trees created
	// from it must be closed individually (Tree.Close).
}
