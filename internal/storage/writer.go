package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/metrics"
)

// Writer performs fire-and-forget writes through a Gateway.
//
// Writes to the same key never overlap: each key has at most one drain
// goroutine, which always writes the newest submitted buffer. Buffers that
// are superseded before their turn are dropped, which is safe because every
// buffer is a full snapshot.
type Writer struct {
	gw      Gateway
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
	onError func(key string, err error)

	mu      sync.Mutex
	pending map[string][]byte
	active  map[string]bool
	idle    chan struct{}
}

// NewWriter returns a Writer bounding each write by timeout.
func NewWriter(gw Gateway, timeout time.Duration, logger zerolog.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		gw:      gw,
		timeout: timeout,
		logger:  logger,
		metrics: m,
		pending: make(map[string][]byte),
		active:  make(map[string]bool),
	}
}

// OnError registers fn to be called after a failed write.
func (w *Writer) OnError(fn func(key string, err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// Submit schedules data to be written under key and returns immediately.
func (w *Writer) Submit(key string, data []byte) {
	w.mu.Lock()
	w.pending[key] = data
	if w.active[key] {
		w.mu.Unlock()
		return
	}
	w.active[key] = true
	w.mu.Unlock()

	go w.drain(key)
}

func (w *Writer) drain(key string) {
	for {
		w.mu.Lock()
		data, ok := w.pending[key]
		if !ok {
			delete(w.active, key)
			if len(w.active) == 0 && w.idle != nil {
				close(w.idle)
				w.idle = nil
			}
			w.mu.Unlock()
			return
		}
		delete(w.pending, key)
		onError := w.onError
		w.mu.Unlock()

		err := w.write(key, data)
		if err != nil {
			// In-memory state is the source of truth; the next snapshot retries.
			w.logger.Error().Err(err).Str("key", key).Int("bytes", len(data)).Msg("storage write failed")
			if onError != nil {
				onError(key, err)
			}
		}
	}
}

func (w *Writer) write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	err := w.gw.WriteFile(ctx, key, data)
	if w.metrics != nil {
		w.metrics.RecordWrite(key, time.Since(start).Seconds(), err)
	}
	return err
}

// WriteNow submits data and waits for the queue to drain. Write failures are
// reported through the log and OnError, the same as for Submit.
func (w *Writer) WriteNow(ctx context.Context, key string, data []byte) error {
	w.Submit(key, data)
	return w.Flush(ctx)
}

// Flush blocks until every submitted write has been attempted or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		if len(w.active) == 0 {
			w.mu.Unlock()
			return nil
		}
		if w.idle == nil {
			w.idle = make(chan struct{})
		}
		idle := w.idle
		w.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
