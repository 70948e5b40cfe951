package config

import "errors"

// ErrConfig is wrapped around every Validate failure so callers at the
// CLI boundary can distinguish a bad config from an engine-level I/O
// or transform failure via errors.Is.
var ErrConfig = errors.New("config: invalid configuration")
