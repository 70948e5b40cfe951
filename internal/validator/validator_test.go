package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"neurolint/internal/source"
)

func TestValidateAcceptsGoodCandidate(t *testing.T) {
	p := source.NewParser()
	original := []byte("function add(a, b) { return a + b; }\n")
	candidate := []byte("function add(a, b) { return a + b + 0; }\n")

	r := Validate(context.Background(), p, "a.js", source.LangJS, original, candidate, DefaultOptions())
	assert.True(t, r.Verified)
}

func TestValidateRejectsParseFailure(t *testing.T) {
	p := source.NewParser()
	original := []byte("function add(a, b) { return a + b; }\n")
	candidate := []byte("function add(a, b) { return a + b;\n") // truncated, unbalanced

	r := Validate(context.Background(), p, "a.js", source.LangJS, original, candidate, DefaultOptions())
	assert.False(t, r.Verified)
}

func TestCheckNoTruncationRejectsShrink(t *testing.T) {
	original := make([]byte, 1000)
	for i := range original {
		original[i] = 'a'
	}
	candidate := original[:100]
	r := checkNoTruncation(original, candidate, DefaultOptions())
	assert.False(t, r.Verified)
	assert.Equal(t, CheckNoTruncation, r.Check)
}

func TestCheckNoTruncationAllowsTinyFiles(t *testing.T) {
	original := []byte("export {};")
	candidate := []byte("export{}")
	r := checkNoTruncation(original, candidate, DefaultOptions())
	assert.True(t, r.Verified)
}

func TestCheckBalancedDelimitersIgnoresStringsAndComments(t *testing.T) {
	src := []byte("const s = \"{ not real }\"; // comment with )\n/* block ( */\nfunction f() { return 1; }")
	r := checkBalancedDelimiters(src)
	assert.True(t, r.Verified)
}

func TestCheckBalancedDelimitersRejectsUnbalanced(t *testing.T) {
	src := []byte("function f() { return 1; ")
	r := checkBalancedDelimiters(src)
	assert.False(t, r.Verified)
}

func TestCheckDirectivePreservation(t *testing.T) {
	original := []byte("'use client';\nexport default function App() {}\n")
	good := []byte("'use client';\nexport default function App() { return null; }\n")
	bad := []byte("export default function App() { return null; }\n")

	assert.True(t, checkDirectivePreservation(original, good).Verified)
	r := checkDirectivePreservation(original, bad)
	assert.False(t, r.Verified)
	assert.Equal(t, CheckDirectives, r.Check)
}

func TestCheckJSXExpressionChildren(t *testing.T) {
	good := []byte("const el = <div>{value}</div>;")
	bad := []byte("const el = <div>{value}}</div>;")

	assert.True(t, checkJSXExpressionChildren(source.LangTSX, good).Verified)
	assert.False(t, checkJSXExpressionChildren(source.LangTSX, bad).Verified)
}
