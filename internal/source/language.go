package source

import (
	"path/filepath"
	"strings"
)

// Language identifies the grammar a SourceArtifact should be parsed with.
type Language string

const (
	LangTS      Language = "ts"
	LangTSX     Language = "tsx"
	LangJS      Language = "js"
	LangJSX     Language = "jsx"
	LangJSON    Language = "json"
	LangYAML    Language = "yaml"
	LangLock    Language = "lock"
	LangUnknown Language = "unknown"
)

// DetectLanguage maps a file path's extension to a Language. Lockfiles
// (package-lock.json, yarn.lock, pnpm-lock.yaml) are recognized by name
// since they carry structural content no layer needs to edit structurally.
func DetectLanguage(path string) Language {
	base := filepath.Base(path)
	switch base {
	case "yarn.lock", "pnpm-lock.yaml", "package-lock.json":
		return LangLock
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return LangTS
	case ".tsx":
		return LangTSX
	case ".js", ".mjs", ".cjs":
		return LangJS
	case ".jsx":
		return LangJSX
	case ".json":
		return LangJSON
	case ".yaml", ".yml":
		return LangYAML
	default:
		return LangUnknown
	}
}

// IsSourceLanguage reports whether layers may attempt a structural (AST)
// transform for this language, as opposed to treating the artifact as
// opaque text.
func IsSourceLanguage(l Language) bool {
	switch l {
	case LangTS, LangTSX, LangJS, LangJSX, LangJSON, LangYAML:
		return true
	default:
		return false
	}
}
