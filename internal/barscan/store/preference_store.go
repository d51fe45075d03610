package store

import "context"

// PreferenceStore is a small string key-value store for settings that must
// survive restarts.
type PreferenceStore interface {
	// GetString returns ok=false when the key has never been written.
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	SetString(ctx context.Context, key, value string) error
}
