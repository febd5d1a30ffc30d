package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/internal/daemon"
	"github.com/focustrack/focustrack/internal/web"
	"github.com/focustrack/focustrack/pkg/utils"
)

func newSprintCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Start, end or list work sprints",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "start",
			Short: "Mark the beginning of a sprint",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.requireDaemon()
				if err != nil {
					return err
				}
				state, err := c.StartSprint(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sprint started at %s\n",
					time.UnixMilli(state.Start).Format(time.DateTime))
				return nil
			},
		},
		&cobra.Command{
			Use:   "end",
			Short: "End the current sprint and record its summary",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.requireDaemon()
				if err != nil {
					return err
				}
				entry, err := c.EndSprint(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sprint recorded: %d activities, total %s, average %s\n",
					entry.Summary.ActivitiesCount,
					utils.FormatRoundedUnit(entry.Summary.TotalDuration),
					utils.FormatRoundedUnit(int64(entry.Summary.AverageDuration)))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List recorded sprints",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				src, err := a.loadSource(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				sprints := src.Sprints()
				if len(sprints) == 0 {
					fmt.Fprintln(out, "No sprints recorded.")
					return nil
				}

				fmt.Fprintf(out, "%-19s %8s %10s %10s\n", "Start", "Length", "Activities", "Average")
				for _, s := range sprints {
					fmt.Fprintf(out, "%-19s %8s %10d %10s\n",
						time.UnixMilli(s.Start).Format(time.DateTime),
						utils.FormatRoundedUnit(s.End-s.Start),
						s.Summary.ActivitiesCount,
						utils.FormatRoundedUnit(int64(s.Summary.AverageDuration)))
				}
				return nil
			},
		},
	)

	return cmd
}

// requireDaemon returns a client, failing when the daemon is not running.
// Sprint boundaries live in the daemon's memory.
func (a *app) requireDaemon() (*web.Client, error) {
	c, ok, err := a.client()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrap(daemon.ErrNotRunning, "start it with `focustrack start`")
	}
	return c, nil
}
