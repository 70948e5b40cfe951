package layers

import "context"

// base supplies ID()/Name() and a default no-fallback implementation so
// concrete layers only need to override what they actually have.
type base struct {
	id   ID
	name string
}

func (b base) ID() ID     { return b.id }
func (b base) Name() string { return b.name }

func (b base) HasFallback() bool { return false }

func (b base) RegexFallback(ctx context.Context, content []byte, lctx Context) (Result, error) {
	return noop(b.id, content), nil
}
