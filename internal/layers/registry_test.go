package layers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLayer struct {
	id   ID
	name string
}

func (s *stubLayer) ID() ID          { return s.id }
func (s *stubLayer) Name() string    { return s.name }
func (s *stubLayer) HasFallback() bool { return false }
func (s *stubLayer) Transform(ctx context.Context, content []byte, lctx Context) (Result, error) {
	return noop(s.id, content), nil
}
func (s *stubLayer) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	return Result{}, nil
}

func TestRegistryRegisterRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubLayer{id: 3, name: "a"}))
	err := r.Register(&stubLayer{id: 3, name: "b"})
	assert.ErrorIs(t, err, ErrLayerAlreadyRegistered)
}

func TestRegistrySelectIgnoresCallerOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubLayer{id: 5, name: "five"}))
	require.NoError(t, r.Register(&stubLayer{id: 1, name: "one"}))
	require.NoError(t, r.Register(&stubLayer{id: 3, name: "three"}))

	selected := r.Select([]ID{5, 1, 3})
	require.Len(t, selected, 3)
	assert.Equal(t, ID(1), selected[0].ID())
	assert.Equal(t, ID(3), selected[1].ID())
	assert.Equal(t, ID(5), selected[2].ID())
}

func TestRegistrySelectDropsUnregisteredIDs(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubLayer{id: 2, name: "two"}))

	selected := r.Select([]ID{2, 9})
	require.Len(t, selected, 1)
	assert.Equal(t, ID(2), selected[0].ID())
}

func TestRegistryAllIsAscending(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubLayer{id: 4, name: "four"}))
	require.NoError(t, r.Register(&stubLayer{id: 2, name: "two"}))

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, ID(2), all[0].ID())
	assert.Equal(t, ID(4), all[1].ID())
	assert.Equal(t, 2, r.Count())
}
