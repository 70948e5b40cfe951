package layers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameworkMigrationRewritesReactDOMRender(t *testing.T) {
	l := NewFrameworkMigrationLayer()
	src := []byte(`ReactDOM.render(<App />, document.getElementById("root"));`)

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	got := string(r.Code)
	assert.Contains(t, got, `const root = createRoot(document.getElementById("root"));`)
	assert.Contains(t, got, `root.render(<App />)`)
}

func TestFrameworkMigrationAvoidsNameCollision(t *testing.T) {
	l := NewFrameworkMigrationLayer()
	src := []byte("const root = document.getElementById('root');\nReactDOM.render(<App />, root);")

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Contains(t, string(r.Code), "const root1 = createRoot(root);")
}

func TestFrameworkMigrationHandlesMultipleCallSites(t *testing.T) {
	l := NewFrameworkMigrationLayer()
	src := []byte(
		`ReactDOM.render(<A />, a);` + "\n" +
			`ReactDOM.render(<B />, b);`,
	)

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Equal(t, 2, r.ChangeCount)
	got := string(r.Code)
	assert.Contains(t, got, "const root = createRoot(a);")
	assert.Contains(t, got, "const root1 = createRoot(b);")
}

func TestFrameworkMigrationNoopWithoutReactDOMRender(t *testing.T) {
	l := NewFrameworkMigrationLayer()
	src := []byte(`createRoot(document.getElementById("root")).render(<App />);`)

	r, err := l.Transform(context.Background(), src, Context{})
	require.NoError(t, err)
	assert.False(t, r.Changed())
}
