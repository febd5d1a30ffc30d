// Package sprint keeps the log of completed sprints.
package sprint

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/storage"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// emptyLog is what a missing or unreadable sprint file is normalized to.
var emptyLog = []byte("[]")

// Recorder owns the in-memory sprint log and its persisted copy.
type Recorder struct {
	gw     storage.Gateway
	writer *storage.Writer
	key    string
	opts   config.SprintConfig
	logger zerolog.Logger

	mu      sync.RWMutex
	sprints []models.SprintEntry
}

// NewRecorder returns an empty Recorder. Call Load to read the stored log.
func NewRecorder(gw storage.Gateway, writer *storage.Writer, key string, opts config.SprintConfig, logger zerolog.Logger) *Recorder {
	return &Recorder{
		gw:      gw,
		writer:  writer,
		key:     key,
		opts:    opts,
		logger:  logger,
		sprints: []models.SprintEntry{},
	}
}

// Key returns the storage key of the sprint file.
func (r *Recorder) Key() string {
	return r.key
}

// Load replaces the in-memory log with the stored one. On any failure the log
// is reset to empty and the stored file is overwritten with [] so a corrupt
// file is not re-parsed on every start.
func (r *Recorder) Load(ctx context.Context) {
	sprints, err := r.read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			r.logger.Info().Str("key", r.key).Msg("no sprint file, creating empty log")
		} else {
			r.logger.Error().Err(err).Str("key", r.key).Msg("failed to load sprints, resetting log")
		}

		r.mu.Lock()
		r.sprints = []models.SprintEntry{}
		r.mu.Unlock()

		if err := r.writer.WriteNow(ctx, r.key, emptyLog); err != nil {
			r.logger.Error().Err(err).Str("key", r.key).Msg("failed to rewrite sprint file")
		}
		return
	}

	r.mu.Lock()
	r.sprints = sprints
	r.mu.Unlock()
}

func (r *Recorder) read(ctx context.Context) ([]models.SprintEntry, error) {
	data, err := r.gw.ReadFile(ctx, r.key)
	if err != nil {
		return nil, err
	}

	if r.opts.StripBOM {
		data = bytes.TrimPrefix(data, utf8BOM)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.Errorf("sprint file %s is empty", r.key)
	}
	if r.opts.RequireArray && !bytes.HasPrefix(trimmed, []byte(r.opts.ArrayPrefix)) {
		return nil, errors.Errorf("sprint file %s does not start with %q", r.key, r.opts.ArrayPrefix)
	}

	var sprints []models.SprintEntry
	if err := json.Unmarshal(trimmed, &sprints); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", r.key)
	}
	if sprints == nil {
		sprints = []models.SprintEntry{}
	}
	return sprints, nil
}

// Record appends entry to the log and schedules a full rewrite of the sprint file.
func (r *Recorder) Record(entry models.SprintEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(append(r.sprints, entry))
	if err != nil {
		return errors.Wrap(err, "failed to encode sprints")
	}
	r.sprints = append(r.sprints, entry)
	// Submitting under the lock keeps snapshots in record order.
	r.writer.Submit(r.key, data)
	return nil
}

// Sprints returns a copy of the log.
func (r *Recorder) Sprints() []models.SprintEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.SprintEntry, len(r.sprints))
	for i, s := range r.sprints {
		out[i] = s
		out[i].Activities = models.CloneEntries(s.Activities)
	}
	return out
}

// Reset empties the log and the stored file.
func (r *Recorder) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.sprints = []models.SprintEntry{}
	r.mu.Unlock()
	return r.writer.WriteNow(ctx, r.key, emptyLog)
}
