package source

import "errors"

var (
	// ErrParse is returned when a parser fails to produce a tree at all
	// (as opposed to a tree containing recoverable ERROR nodes).
	ErrParse = errors.New("source: parse error")

	// ErrUnsupportedLanguage is returned for a path whose language the
	// engine has no parser for.
	ErrUnsupportedLanguage = errors.New("source: unsupported language")

	// ErrPrint is returned when Print cannot reconcile a tree's edits
	// against its original bytes.
	ErrPrint = errors.New("source: print error")
)
