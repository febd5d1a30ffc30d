package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/internal/config"
	"github.com/focustrack/focustrack/internal/daemon"
	"github.com/focustrack/focustrack/internal/logging"
	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/web"
)

// app carries what every subcommand needs, populated in PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   appName,
		Short: "Track focused application time and work sprints",
		Long: `focustrack samples the focused window once per poll interval, records
closed activity entries to a history file and groups them into sprints.

Configuration comes from ~/.config/focustrack/config.yaml (or $FOCUSTRACK_CONFIG)
and FOCUSTRACK_* environment variables, e.g. FOCUSTRACK_TRACKER_POLL_INTERVAL=2s,
FOCUSTRACK_TRACKER_IDLE_TIMEOUT=5m, FOCUSTRACK_STORAGE_BACKEND=sqlite.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	root.AddCommand(
		newStartCmd(a),
		newServeCmd(a),
		newStopCmd(a),
		newStatusCmd(a),
		newReportCmd(a),
		newHistoryCmd(a),
		newSprintCmd(a),
		newClearCmd(a),
		newStorageCmd(a),
		newVersionCmd(),
	)

	return root
}

// client returns an API client when the daemon is running.
func (a *app) client() (*web.Client, bool, error) {
	running, _, err := daemon.New(a.cfg.Daemon.PIDFile).IsRunning()
	if err != nil || !running {
		return nil, false, err
	}
	return web.NewClient(a.cfg.Address()), true, nil
}

// snapshotSource is a fixed copy of history and sprints for the reporter.
type snapshotSource struct {
	history []models.ActivityEntry
	sprints []models.SprintEntry
}

func (s snapshotSource) History() []models.ActivityEntry { return s.history }
func (s snapshotSource) Sprints() []models.SprintEntry   { return s.sprints }

// loadSource reads history and sprints from the daemon when it runs, otherwise from storage.
func (a *app) loadSource(ctx context.Context) (snapshotSource, error) {
	c, ok, err := a.client()
	if err != nil {
		return snapshotSource{}, err
	}

	if ok {
		h, err := c.History(ctx, 0)
		if err != nil {
			return snapshotSource{}, err
		}
		s, err := c.Sprints(ctx)
		if err != nil {
			return snapshotSource{}, err
		}
		return snapshotSource{history: h, sprints: s}, nil
	}

	st, err := openStores(a.cfg, a.logger, nil)
	if err != nil {
		return snapshotSource{}, err
	}
	defer st.Close(ctx)

	src := snapshotSource{history: st.history.Load(ctx)}
	st.sprints.Load(ctx)
	src.sprints = st.sprints.Sprints()
	return src, nil
}
