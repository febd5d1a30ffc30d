// Package storage persists whole-file byte buffers under string keys.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by ReadFile when nothing is stored under the key.
	ErrNotFound = errors.New("storage: key not found")

	// ErrInvalidKey is returned for keys that would escape the storage root.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Gateway reads and writes whole files in an application-private storage area.
// WriteFile always replaces the full content stored under key.
type Gateway interface {
	ReadFile(ctx context.Context, key string) ([]byte, error)
	WriteFile(ctx context.Context, key string, data []byte) error
}
