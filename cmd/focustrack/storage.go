package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/pkg/utils"
)

func newStorageCmd(a *app) *cobra.Command {
	var (
		since time.Duration
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Show stored files and recent storage errors",
		Long: `Show where history and sprints are stored, their sizes and, for the
sqlite backend, storage errors recorded by the daemon.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			st, err := openStores(a.cfg, a.logger, nil)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			if st.files != nil {
				fmt.Fprintf(out, "Backend: file (%s)\n", st.files.Root())
				for _, key := range []string{st.history.Key(), st.sprints.Key()} {
					printFileKey(out, st.files.Root(), key)
				}
				if prune > 0 {
					fmt.Fprintln(out, "Error log is only kept by the sqlite backend")
				}
				return nil
			}

			path, err := a.cfg.ResolveDatabasePath()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Backend: sqlite (%s)\n", path)

			blobs, err := st.repo.Keys(cmd.Context())
			if err != nil {
				return err
			}
			if len(blobs) == 0 {
				fmt.Fprintln(out, "  (empty)")
			}
			for _, b := range blobs {
				fmt.Fprintf(out, "  %-20s %8d bytes  updated %s\n", b.Key, b.Size, b.UpdatedAt.Local().Format(time.DateTime))
			}

			if prune > 0 {
				n, err := st.repo.DeleteOldErrors(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d error logs older than %s\n", n, prune)
			}

			logs, err := st.repo.GetErrorsSince(time.Now().Add(-since))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nErrors in the last %s: %d\n", since, len(logs))
			for _, l := range logs {
				fmt.Fprintf(out, "  %s  %s  %s\n", l.Timestamp.Local().Format(time.DateTime), l.Component, utils.Truncate(l.ErrorMsg, 80))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "show errors recorded within this window")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete error logs older than this age (sqlite only)")
	return cmd
}

func printFileKey(out io.Writer, root, key string) {
	info, err := os.Stat(filepath.Join(root, key))
	if err != nil {
		fmt.Fprintf(out, "  %-20s missing\n", key)
		return
	}
	fmt.Fprintf(out, "  %-20s %8d bytes  updated %s\n", key, info.Size(), info.ModTime().Format(time.DateTime))
}
