package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"panelsmith/internal/api"
)

const watchPollInterval = 2 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "status <job-token>",
		Short: "Show the current state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			if watch {
				return watchJob(cmd, client, args[0])
			}

			view, err := client.JobStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJob(cmd.OutOrStdout(), view)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll progress until the job finishes")
	return cmd
}

// watchJob polls the daemon until the job reaches a terminal state, printing
// a line whenever progress or stage changes.
func watchJob(cmd *cobra.Command, client *api.Client, token string) error {
	out := cmd.OutOrStdout()
	lastProgress := -1
	lastStage := ""

	for {
		view, err := client.JobStatus(cmd.Context(), token)
		if err != nil {
			return err
		}

		if view.Progress != lastProgress || view.Stage != lastStage {
			fmt.Fprintln(out, progressLine(view))
			lastProgress = view.Progress
			lastStage = view.Stage
		}

		if isTerminalStatus(view.Status) {
			fmt.Fprintln(out)
			printJob(out, view)
			if view.Status == "failed" {
				return fmt.Errorf("job failed: %s", view.ErrorMessage)
			}
			return nil
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(watchPollInterval):
		}
	}
}
