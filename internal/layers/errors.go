package layers

import "errors"

var (
	// ErrLayerAlreadyRegistered is returned by Registry.Register for a
	// duplicate ID.
	ErrLayerAlreadyRegistered = errors.New("layers: layer already registered")

	// ErrUnsupportedLanguage is returned by layers that only operate on
	// a subset of source.Language values.
	ErrUnsupportedLanguage = errors.New("layers: unsupported language for this layer")
)
