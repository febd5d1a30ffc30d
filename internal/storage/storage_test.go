package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focustrack/focustrack/internal/metrics"
)

func TestFileGateway_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	gw := NewFileGateway(dir)
	ctx := context.Background()

	require.NoError(t, gw.WriteFile(ctx, "history.json", []byte(`[1]`)))
	require.NoError(t, gw.WriteFile(ctx, "history.json", []byte(`[]`)))

	data, err := gw.ReadFile(ctx, "history.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileGateway_NotFound(t *testing.T) {
	gw := NewFileGateway(t.TempDir())
	_, err := gw.ReadFile(context.Background(), "sprints.json")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileGateway_InvalidKey(t *testing.T) {
	gw := NewFileGateway(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../escape.json", "/etc/passwd", "a/../../b"} {
		err := gw.WriteFile(ctx, key, []byte("x"))
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q", key)
	}
}

func TestFileGateway_WriteFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("not a dir"), 0o644))

	gw := NewFileGateway(root)
	err := gw.WriteFile(context.Background(), "history.json", []byte(`[]`))
	require.Error(t, err)
}

// slowGateway fails the test if two writes to the same key overlap.
type slowGateway struct {
	inner    *MemoryGateway
	inFlight sync.Map
	overlaps atomic.Int32
	delay    time.Duration
}

func (g *slowGateway) ReadFile(ctx context.Context, key string) ([]byte, error) {
	return g.inner.ReadFile(ctx, key)
}

func (g *slowGateway) WriteFile(ctx context.Context, key string, data []byte) error {
	if _, busy := g.inFlight.LoadOrStore(key, true); busy {
		g.overlaps.Add(1)
	}
	time.Sleep(g.delay)
	err := g.inner.WriteFile(ctx, key, data)
	g.inFlight.Delete(key)
	return err
}

func TestWriter_SerializesAndCoalesces(t *testing.T) {
	gw := &slowGateway{inner: NewMemoryGateway(), delay: 5 * time.Millisecond}
	w := NewWriter(gw, time.Second, zerolog.Nop(), metrics.New())

	for i := 0; i < 50; i++ {
		w.Submit("history.json", []byte(fmt.Sprintf("[%d]", i)))
	}
	require.NoError(t, w.Flush(context.Background()))

	assert.Zero(t, gw.overlaps.Load())
	assert.Less(t, gw.inner.Writes("history.json"), 50, "superseded snapshots should be coalesced")

	data, err := gw.ReadFile(context.Background(), "history.json")
	require.NoError(t, err)
	assert.Equal(t, "[49]", string(data), "the newest snapshot must win")
}

func TestWriter_KeysAreIndependent(t *testing.T) {
	gw := NewMemoryGateway()
	w := NewWriter(gw, time.Second, zerolog.Nop(), nil)

	w.Submit("history.json", []byte("[]"))
	w.Submit("sprints.json", []byte("[]"))
	require.NoError(t, w.Flush(context.Background()))

	assert.Equal(t, 1, gw.Writes("history.json"))
	assert.Equal(t, 1, gw.Writes("sprints.json"))
}

type failingGateway struct{}

func (failingGateway) ReadFile(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (failingGateway) WriteFile(context.Context, string, []byte) error {
	return errors.New("permission denied")
}

func TestWriter_ReportsFailures(t *testing.T) {
	w := NewWriter(failingGateway{}, time.Second, zerolog.Nop(), metrics.New())

	var failedKey atomic.Value
	w.OnError(func(key string, err error) { failedKey.Store(key) })

	require.NoError(t, w.WriteNow(context.Background(), "sprints.json", []byte("[]")))
	assert.Equal(t, "sprints.json", failedKey.Load())
}

func TestWriter_FlushEmpty(t *testing.T) {
	w := NewWriter(NewMemoryGateway(), time.Second, zerolog.Nop(), nil)
	require.NoError(t, w.Flush(context.Background()))
}

func TestWriter_FlushHonorsContext(t *testing.T) {
	gw := &slowGateway{inner: NewMemoryGateway(), delay: 200 * time.Millisecond}
	w := NewWriter(gw, time.Second, zerolog.Nop(), nil)
	w.Submit("history.json", []byte("[]"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Flush(ctx), context.DeadlineExceeded)

	require.NoError(t, w.Flush(context.Background()))
}
