// Package localstore persists carts locally when the remote cart service is
// unreachable. Storage is a port so the cart store never depends on a
// concrete global.
package localstore

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the storage quota.
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
	// ErrCorrupted is returned when a stored blob cannot be decoded.
	ErrCorrupted = errors.New("local storage blob corrupted")
)

// Storage stores opaque blobs by key. Save replaces the whole blob in a
// single call; a reader never observes a partial write.
type Storage interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}
