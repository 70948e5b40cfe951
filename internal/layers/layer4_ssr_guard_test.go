package layers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSRGuardWrapsLocalStorageAccess(t *testing.T) {
	l := NewSSRHydrationGuardLayer()
	src := []byte(`const token = localStorage.getItem("token");`)

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Contains(t, string(r.Code), `typeof window !== "undefined" ? localStorage.getItem("token") : null`)
}

func TestSSRGuardIsIdempotent(t *testing.T) {
	l := NewSSRHydrationGuardLayer()
	src := []byte(`const token = localStorage.getItem("token");`)

	first, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := l.Transform(context.Background(), first.Code, Context{})
	require.NoError(t, err)
	assert.False(t, second.Changed())
}

func TestSSRGuardFallbackMatchesTransform(t *testing.T) {
	l := NewSSRHydrationGuardLayer()
	src := []byte(`sessionStorage.setItem("k", "v");`)

	r, err := l.RegexFallback(context.Background(), src, Context{})
	require.NoError(t, err)
	assert.True(t, r.Changed())
}
