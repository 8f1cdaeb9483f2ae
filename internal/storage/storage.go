// Package storage provides the durable key-value backends that hold client
// state between runs, most importantly the persisted session token pair.
package storage

import (
	"context"

	"github.com/desertthunder/setlist/internal/shared"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = shared.ErrStorageNotFound

// KV is a minimal durable key-value store.
//
// Implementations must be safe for concurrent use. Delete of a missing key
// is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Describer is implemented by stores that can say where data lives.
type Describer interface {
	Describe() string
}

// Describe returns a human-readable location for kv, or its driver name.
func Describe(kv KV) string {
	if d, ok := kv.(Describer); ok {
		return d.Describe()
	}
	return "unknown"
}
