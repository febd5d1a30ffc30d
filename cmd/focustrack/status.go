package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/internal/daemon"
	"github.com/focustrack/focustrack/internal/web"
	"github.com/focustrack/focustrack/pkg/detector"
	"github.com/focustrack/focustrack/pkg/utils"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the current activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			running, pid, err := daemon.New(a.cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return err
			}

			if !running {
				fmt.Fprintln(out, "Status: Not running")
				// Still show the focused window when the daemon is down
				printSample(cmd.Context(), out, a)
				return nil
			}

			fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
			status, err := web.NewClient(a.cfg.Address()).Status(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "Web API unreachable at %s: %v\n", a.cfg.Address(), err)
				return nil
			}
			printStatus(out, status, time.Now())
			return nil
		},
	}
}

func printStatus(out io.Writer, s *web.StatusResponse, now time.Time) {
	fmt.Fprintf(out, "Sampler: %s\n", s.Sampler)
	fmt.Fprintf(out, "Poll Interval: %s\n", s.PollInterval)
	fmt.Fprintf(out, "Idle Timeout: %s\n", s.IdleTimeout)
	fmt.Fprintf(out, "Storage: %s\n", s.StorageBackend)
	fmt.Fprintf(out, "History: %d entries, %d sprints\n", s.HistoryLength, s.Sprints)
	fmt.Fprintf(out, "Last Input: %s ago\n", utils.FormatRoundedUnit(int64(s.LastInputIdleMs)))

	if s.Current != nil {
		since := now.UnixMilli() - s.Current.Start
		fmt.Fprintf(out, "\nCurrent Activity:\n")
		fmt.Fprintf(out, "  App: %s\n", s.Current.Name)
		fmt.Fprintf(out, "  Title: %s\n", s.Current.Title)
		fmt.Fprintf(out, "  For: %s\n", utils.FormatRoundedUnit(since))
	} else {
		fmt.Fprintf(out, "\nCurrent Activity: none\n")
	}

	if s.Sprint != nil {
		fmt.Fprintf(out, "\nSprint in progress: started %s, %d activities\n",
			time.UnixMilli(s.Sprint.Start).Format("15:04:05"), s.Sprint.Activities)
	}
}

func printSample(ctx context.Context, out io.Writer, a *app) {
	sampler, err := detector.New(a.cfg.Tracker.Sampler, a.logger)
	if err != nil {
		fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
		return
	}
	defer sampler.Close()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Tracker.SampleTimeout)
	defer cancel()

	if w, err := sampler.FocusedWindow(ctx); err == nil && w.Focused() {
		fmt.Fprintf(out, "\nCurrent Window:\n")
		fmt.Fprintf(out, "  App: %s\n", w.Name)
		fmt.Fprintf(out, "  Title: %s\n", w.Title)
	}

	if idle, err := sampler.IdleMs(ctx); err == nil {
		fmt.Fprintf(out, "  Idle: %s\n", utils.FormatRoundedUnit(int64(idle)))
	}
}
