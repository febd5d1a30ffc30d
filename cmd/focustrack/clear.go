package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded activities and sprints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if !yes {
				fmt.Fprint(out, "This will delete all tracking data. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			c, running, err := a.client()
			if err != nil {
				return err
			}

			if running {
				if err := c.Clear(cmd.Context()); err != nil {
					return err
				}
			} else {
				st, err := openStores(a.cfg, a.logger, nil)
				if err != nil {
					return err
				}
				if err := st.history.Reset(cmd.Context()); err != nil {
					st.Close(cmd.Context())
					return err
				}
				if err := st.sprints.Reset(cmd.Context()); err != nil {
					st.Close(cmd.Context())
					return err
				}
				if err := st.Close(cmd.Context()); err != nil {
					return err
				}
			}

			fmt.Fprintln(out, "Tracking data cleared successfully")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
