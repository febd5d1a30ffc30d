package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/focustrack/focustrack/internal/reporter"
	"github.com/focustrack/focustrack/pkg/utils"
)

func newReportCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "report [day|week|month|all]",
		Short: "Generate a time report for a period",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}

			rep, err := reporter.New(a.cfg, src)
			if err != nil {
				return err
			}

			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return err
			}

			if jsonOutput {
				jsonStr, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), rep.FormatReportText(report))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded activities, newest last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.loadSource(cmd.Context())
			if err != nil {
				return err
			}

			entries := src.History()
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No activity recorded.")
				return nil
			}

			fmt.Fprintf(out, "%-19s %8s  %-24s %s\n", "Start", "Duration", "Application", "Title")
			for _, e := range entries {
				fmt.Fprintf(out, "%-19s %8s  %-24s %s\n",
					e.StartTime().Format(time.DateTime),
					utils.FormatRoundedUnit(e.Duration()),
					utils.Truncate(e.Name, 24),
					utils.Truncate(e.Title, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show; 0 shows all")
	return cmd
}
