package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryGateway keeps buffers in memory. It backs tests and dry runs.
type MemoryGateway struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes map[string]int
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		files:  make(map[string][]byte),
		writes: make(map[string]int),
	}
}

func (g *MemoryGateway) ReadFile(ctx context.Context, key string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.files[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", key)
	}
	return append([]byte(nil), data...), nil
}

func (g *MemoryGateway) WriteFile(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[key] = append([]byte(nil), data...)
	g.writes[key]++
	return nil
}

// Writes returns how many times key has been written.
func (g *MemoryGateway) Writes(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes[key]
}

// Put stores data without counting it as a write.
func (g *MemoryGateway) Put(key string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.files[key] = append([]byte(nil), data...)
}
