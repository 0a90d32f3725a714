package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a KeyValueStore when the key holds no value.
var ErrNotFound = errors.New("domain: key not found")

// ErrCapacity is returned by a KeyValueStore that cannot accept a write because
// it is full or the value exceeds a backend limit.
var ErrCapacity = errors.New("domain: store capacity exceeded")

// KeyValueStore is the persistence port used for snapshots, department
// assignments and progress records. Set overwrites; Remove of a missing key is
// not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// ClosableStore is implemented by stores holding external resources.
type ClosableStore interface {
	KeyValueStore
	Close() error
}
