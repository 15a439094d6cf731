// Package store persists the session credential across process restarts.
package store

import (
	"context"
	"errors"
)

const (
	KeyAccessToken = "access_token"
	KeyTokenType   = "token_type"
)

var (
	ErrNotFound   = errors.New("key not found in store")
	ErrInvalidKey = errors.New("invalid store key")
)

// Store is a small string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
