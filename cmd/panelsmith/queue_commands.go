package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"panelsmith/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var statusFilters []string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List jobs known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().ListJobs(cmd.Context(), statusFilters...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "Queue is empty.")
				return nil
			}

			headers := []string{"Job", "Status", "Progress", "Stage", "Format", "Created"}
			rows := make([][]string, 0, len(resp.Jobs))
			for _, view := range resp.Jobs {
				rows = append(rows, []string{
					shortToken(view.Token),
					view.Status,
					strconv.Itoa(view.Progress) + "%",
					view.Stage,
					view.Format,
					view.CreatedAt,
				})
			}
			aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (pending, processing, completed, failed)")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon health and queue totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			printHealth(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func printHealth(out io.Writer, resp *api.HealthResponse) {
	fmt.Fprintf(out, "Status:  %s\n", resp.Status)
	fmt.Fprintf(out, "Workers: %d (%d active)\n", resp.Workflow.Workers, resp.Workflow.Active)
	if resp.Workflow.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", resp.Workflow.LastError)
	}
	fmt.Fprintf(out, "Jobs:    %d total, %d pending, %d processing, %d completed, %d failed\n",
		resp.Jobs.Total, resp.Jobs.Pending, resp.Jobs.Processing, resp.Jobs.Completed, resp.Jobs.Failed)
	for _, check := range resp.Checks {
		state := "ok"
		if !check.Passed {
			state = "FAIL"
		}
		fmt.Fprintf(out, "Check %-24s %s", check.Name, state)
		if check.Detail != "" {
			fmt.Fprintf(out, " (%s)", check.Detail)
		}
		fmt.Fprintln(out)
	}
}
