// Package storage holds the key-value backends that cart snapshots are
// written to. Every backend stores opaque bytes under a string key.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or has expired.
var ErrNotFound = errors.New("storage: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
