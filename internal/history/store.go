// Package history persists the ordered log of closed activity entries.
package history

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/storage"
)

// Store loads and saves the full history under one storage key.
type Store struct {
	gw     storage.Gateway
	writer *storage.Writer
	key    string
	logger zerolog.Logger
}

// NewStore returns a Store reading through gw and writing through writer.
func NewStore(gw storage.Gateway, writer *storage.Writer, key string, logger zerolog.Logger) *Store {
	return &Store{
		gw:     gw,
		writer: writer,
		key:    key,
		logger: logger,
	}
}

// Key returns the storage key of the history file.
func (s *Store) Key() string {
	return s.key
}

// Load returns the persisted history. Missing, empty or malformed files yield
// an empty history; the cause is logged and never returned.
func (s *Store) Load(ctx context.Context) []models.ActivityEntry {
	entries, err := s.read(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Info().Str("key", s.key).Msg("no history file, starting empty")
		} else {
			s.logger.Error().Err(err).Str("key", s.key).Msg("failed to load history, starting empty")
		}
		return []models.ActivityEntry{}
	}

	valid := entries[:0]
	for _, e := range entries {
		if !e.Valid() {
			s.logger.Warn().Str("name", e.Name).Int64("start", e.Start).Msg("dropping open or inverted history entry")
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

func (s *Store) read(ctx context.Context) ([]models.ActivityEntry, error) {
	data, err := s.gw.ReadFile(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.Errorf("history file %s is empty", s.key)
	}

	var entries []models.ActivityEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", s.key)
	}
	if entries == nil {
		return nil, errors.Errorf("history file %s is not an array", s.key)
	}
	return entries, nil
}

// Save serializes the full history and schedules a whole-file replace.
func (s *Store) Save(entries []models.ActivityEntry) error {
	data, err := Encode(entries)
	if err != nil {
		return err
	}
	s.writer.Submit(s.key, data)
	return nil
}

// Reset replaces the stored history with an empty array and waits for the write.
func (s *Store) Reset(ctx context.Context) error {
	return s.writer.WriteNow(ctx, s.key, []byte("[]"))
}

// Encode renders entries as a JSON array; nil becomes [].
func Encode(entries []models.ActivityEntry) ([]byte, error) {
	if entries == nil {
		entries = []models.ActivityEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode history")
	}
	return data, nil
}
