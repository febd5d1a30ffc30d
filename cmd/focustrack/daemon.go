package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/internal/daemon"
	"github.com/focustrack/focustrack/internal/logging"
	"github.com/focustrack/focustrack/internal/metrics"
	"github.com/focustrack/focustrack/internal/tracker"
	"github.com/focustrack/focustrack/internal/web"
	"github.com/focustrack/focustrack/pkg/detector"
)

const shutdownTimeout = 10 * time.Second

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tracking daemon in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon.IsChild() {
				return runServe(cmd.Context(), a)
			}

			dm := daemon.New(a.cfg.Daemon.PIDFile)
			pid, err := dm.Spawn([]string{"serve"}, a.cfg.Daemon.LogFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
			fmt.Fprintf(out, "Web API available at: http://%s\n", a.cfg.Address())
			fmt.Fprintf(out, "Logs: %s\n", a.cfg.Daemon.LogFile)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker and web API in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

func runServe(parent context.Context, a *app) error {
	dm := daemon.New(a.cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running && pid != os.Getpid() {
		return errors.Wrapf(daemon.ErrAlreadyRunning, "pid %d", pid)
	}

	logger := a.logger
	if daemon.IsChild() {
		fileLogger, closer, err := logging.NewFile(a.cfg.Log, a.cfg.Daemon.LogFile)
		if err != nil {
			return err
		}
		defer closer.Close()
		logger = fileLogger
	}

	m := metrics.New()
	st, err := openStores(a.cfg, logger, m)
	if err != nil {
		return err
	}

	sampler, err := detector.New(a.cfg.Tracker.Sampler, logger)
	if err != nil {
		st.Close(context.Background())
		return errors.Wrap(err, "failed to initialize window sampler")
	}
	defer sampler.Close()
	logger.Info().Str("sampler", sampler.Name()).Msg("window sampler initialized")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := tracker.New(tracker.OptionsFromConfig(a.cfg), sampler, st.history, st.sprints, m, logging.Component(logger, "tracker"))
	tr.Load(ctx)

	handler, err := web.NewHandler(a.cfg, tr, m, logging.Component(logger, "web"))
	if err != nil {
		st.Close(context.Background())
		return err
	}
	srv := web.NewServer(a.cfg, handler, logging.Component(logger, "web"))

	if err := dm.WritePID(); err != nil {
		st.Close(context.Background())
		return err
	}
	defer dm.RemovePID()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	if err := tr.Start(ctx); err != nil {
		st.Close(context.Background())
		return err
	}

	logger.Info().Str("addr", a.cfg.Address()).Msg("focustrack daemon running")
	logger.Debug().Msg(a.cfg.String())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-serveErr:
		if runErr != nil {
			logger.Error().Err(runErr).Msg("web server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	tr.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down web server")
	}
	if err := st.Close(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}

	logger.Info().Msg("daemon stopped")
	return runErr
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the tracking daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dm := daemon.New(a.cfg.Daemon.PIDFile)

			_, pid, err := dm.IsRunning()
			if err != nil {
				return err
			}

			if err := dm.Stop(); err != nil {
				if errors.Is(err, daemon.ErrNotRunning) {
					fmt.Fprintln(out, "Daemon is not running")
					return nil
				}
				return errors.Wrap(err, "failed to stop daemon")
			}

			fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
			ctx, cancel := context.WithTimeout(cmd.Context(), shutdownTimeout)
			defer cancel()
			if err := daemon.WaitForExit(ctx, pid); err != nil {
				return err
			}

			fmt.Fprintln(out, "Daemon stopped successfully")
			return nil
		},
	}
}
