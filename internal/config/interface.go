package config

import "context"

// Loader is the interface for a format-specific model declaration loader.
type Loader interface {
	// Load reads model declarations from the given paths and translates
	// them into the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}
