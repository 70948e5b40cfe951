package layers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentHygieneInjectsMissingKey(t *testing.T) {
	l := NewComponentHygieneLayer()
	src := []byte("items.map(item => <Row value={item.value}>{item.label}</Row>)")

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Contains(t, string(r.Code), "key={item.id ?? item}")
}

func TestComponentHygieneSkipsExistingKey(t *testing.T) {
	l := NewComponentHygieneLayer()
	src := []byte(`items.map(item => <Row key={item.id} value={item.value} />)`)

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	assert.False(t, r.Changed())
}

func TestComponentHygieneHoistsUseClientDirective(t *testing.T) {
	l := NewComponentHygieneLayer()
	src := []byte("import { useState } from 'react';\n'use client';\n\nexport default function Page() {}\n")

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Equal(t, 0, indexOf(r.Code, "'use client';"))
}

func TestComponentHygieneFallbackOnlyInjectsKeys(t *testing.T) {
	l := NewComponentHygieneLayer()
	src := []byte("items.map(item => <Row value={item.value} />)")

	r, err := l.RegexFallback(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Equal(t, DiagFallbackAccepted, r.Diagnostics[0].Kind)
}

func indexOf(content []byte, sub string) int {
	return strings.Index(string(content), sub)
}
