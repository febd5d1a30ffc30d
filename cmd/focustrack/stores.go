package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/database"
	"github.com/focustrack/focustrack/internal/history"
	"github.com/focustrack/focustrack/internal/logging"
	"github.com/focustrack/focustrack/internal/metrics"
	"github.com/focustrack/focustrack/internal/sprint"
	"github.com/focustrack/focustrack/internal/storage"
)

// stores bundles the configured storage backend with the history and sprint stores on top of it.
type stores struct {
	writer  *storage.Writer
	history *history.Store
	sprints *sprint.Recorder
	db      *database.DB
	repo    *database.Repository
	files   *storage.FileGateway
	logger  zerolog.Logger
}

func openStores(cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*stores, error) {
	st := &stores{logger: logging.Component(logger, "storage")}

	var gw storage.Gateway
	var repo *database.Repository

	switch cfg.Storage.Backend {
	case "sqlite":
		path, err := cfg.ResolveDatabasePath()
		if err != nil {
			return nil, err
		}
		db, err := database.Connect(path)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, err
		}
		st.db = db
		repo = database.NewRepository(db)
		st.repo = repo
		gw = repo
		st.logger.Debug().Str("path", path).Msg("using sqlite storage")

	default:
		dir, err := cfg.ResolveDataDir()
		if err != nil {
			return nil, err
		}
		st.files = storage.NewFileGateway(dir)
		gw = st.files
		st.logger.Debug().Str("dir", dir).Msg("using file storage")
	}

	st.writer = storage.NewWriter(gw, cfg.Storage.WriteTimeout, st.logger, m)
	if repo != nil {
		st.writer.OnError(func(key string, err error) {
			if logErr := repo.StoreError("storage:"+key, err); logErr != nil {
				st.logger.Error().Err(logErr).Msg("failed to record storage error")
			}
		})
	}

	st.history = history.NewStore(gw, st.writer, cfg.Storage.HistoryKey, logging.Component(logger, "history"))
	st.sprints = sprint.NewRecorder(gw, st.writer, cfg.Storage.SprintKey, cfg.Sprint, logging.Component(logger, "sprint"))

	return st, nil
}

// Close waits for pending writes and closes the database.
func (s *stores) Close(ctx context.Context) error {
	err := s.writer.Flush(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("pending writes were not flushed")
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
