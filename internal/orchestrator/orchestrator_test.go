package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolint/internal/layers"
	"neurolint/internal/source"
	"neurolint/internal/validator"
)

// fakeLayer drives the orchestrator's 5 stages with scripted
// transform/fallback behavior, without depending on any real layer's
// transformation logic.
type fakeLayer struct {
	id        layers.ID
	name      string
	transform func(content []byte) (layers.Result, error)
	fallback  func(content []byte) (layers.Result, error)
	fallbackOK bool
}

func (f *fakeLayer) ID() layers.ID     { return f.id }
func (f *fakeLayer) Name() string      { return f.name }
func (f *fakeLayer) HasFallback() bool { return f.fallbackOK }

func (f *fakeLayer) Transform(ctx context.Context, content []byte, lctx layers.Context) (layers.Result, error) {
	return f.transform(content)
}

func (f *fakeLayer) RegexFallback(ctx context.Context, content []byte, lctx layers.Context) (layers.Result, error) {
	if f.fallback == nil {
		return layers.Result{}, nil
	}
	return f.fallback(content)
}

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	p := source.NewParser()
	t.Cleanup(p.Close)
	return New(p, validator.DefaultOptions())
}

const validJS = "function add(a, b) { return a + b; }\n"

func changedResult(id layers.ID, original, code string) layers.Result {
	return layers.Result{LayerID: id, Success: true, ChangeCount: 1, OriginalCode: []byte(original), Code: []byte(code)}
}

func TestOrchestratorAcceptsValidASTResult(t *testing.T) {
	o := newTestOrchestrator(t)
	l := &fakeLayer{id: 1, name: "fake", transform: func(content []byte) (layers.Result, error) {
		return changedResult(1, validJS, "function add(a, b) { return a + b + 0; }\n"), nil
	}}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	require.True(t, r.Success)
	assert.True(t, r.Changed())
	assert.Len(t, r.Diagnostics, 1)
	assert.Equal(t, layers.DiagAccepted, r.Diagnostics[0].Kind)
}

func TestOrchestratorNoopShortCircuitsWithoutValidation(t *testing.T) {
	o := newTestOrchestrator(t)
	l := &fakeLayer{id: 1, name: "fake", transform: func(content []byte) (layers.Result, error) {
		return layers.Result{LayerID: 1, Success: true, OriginalCode: content, Code: content}, nil
	}}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	require.True(t, r.Success)
	assert.False(t, r.Changed())
}

func TestOrchestratorFallsBackWhenASTRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	l := &fakeLayer{
		id: 1, name: "fake", fallbackOK: true,
		transform: func(content []byte) (layers.Result, error) {
			// Truncated, unbalanced: fails the parse/no-truncation checks.
			return changedResult(1, validJS, "function add(a, b) { return a + b;\n"), nil
		},
		fallback: func(content []byte) (layers.Result, error) {
			return changedResult(1, validJS, "function add(a, b) { return a - b; }\n"), nil
		},
	}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	require.True(t, r.Success)
	assert.Equal(t, "function add(a, b) { return a - b; }\n", string(r.Code))
	require.NotEmpty(t, r.Diagnostics)
	assert.Equal(t, layers.DiagFallbackAccepted, r.Diagnostics[len(r.Diagnostics)-1].Kind)
}

func TestOrchestratorRevertsWhenRejectedWithNoFallback(t *testing.T) {
	o := newTestOrchestrator(t)
	l := &fakeLayer{
		id: 1, name: "fake", fallbackOK: false,
		transform: func(content []byte) (layers.Result, error) {
			return changedResult(1, validJS, "function add(a, b) { return a + b;\n"), nil
		},
	}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	assert.False(t, r.Success)
	assert.Equal(t, validJS, string(r.Code))
	assert.ErrorIs(t, r.Error, ErrTransformRejected)
}

func TestOrchestratorRevertsWhenFallbackAlsoRejected(t *testing.T) {
	o := newTestOrchestrator(t)
	l := &fakeLayer{
		id: 1, name: "fake", fallbackOK: true,
		transform: func(content []byte) (layers.Result, error) {
			return changedResult(1, validJS, "function add(a, b) { return a + b;\n"), nil
		},
		fallback: func(content []byte) (layers.Result, error) {
			return changedResult(1, validJS, "function add(a, b {\n"), nil
		},
	}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	assert.False(t, r.Success)
	assert.Equal(t, validJS, string(r.Code))
	assert.ErrorIs(t, r.Error, ErrTransformRejected)
}

func TestOrchestratorRevertsOnTransformError(t *testing.T) {
	o := newTestOrchestrator(t)
	boom := errors.New("boom")
	l := &fakeLayer{id: 1, name: "fake", transform: func(content []byte) (layers.Result, error) {
		return layers.Result{}, boom
	}}

	r := o.Run(context.Background(), l, "a.js", source.LangJS, []byte(validJS), layers.Context{})
	assert.False(t, r.Success)
	assert.ErrorIs(t, r.Error, boom)
	assert.Equal(t, validJS, string(r.Code))
}
