package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"panelsmith/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sessionToken string
	var style string
	var chapters string
	var format string
	var watch bool

	cmd := &cobra.Command{
		Use:   "submit <story-file>",
		Short: "Submit a story for comic generation",
		Long: "Submit reads a story from the given file (or stdin when the argument is \"-\") " +
			"and queues it for generation. Without --session a fresh session is created and " +
			"collaborator keys are taken from the environment.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readStoryInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			client := ctx.client()
			out := cmd.OutOrStdout()

			token := sessionToken
			if token == "" {
				session, err := client.CreateSession(cmd.Context())
				if err != nil {
					return err
				}
				creds := resolveCredentialFlags("", "")
				if creds.AnalysisKey == "" && creds.SynthesisKey == "" {
					return fmt.Errorf("no collaborator keys found; set PANELSMITH_ANALYSIS_API_KEY and PANELSMITH_SYNTHESIS_API_KEY, or create a session with `panelsmith session create` and pass --session")
				}
				if _, err := client.AttachCredentials(cmd.Context(), session.Token, creds); err != nil {
					return err
				}
				token = session.Token
				fmt.Fprintf(out, "Session: %s\n", shortToken(token))
			}

			job, err := client.SubmitJob(cmd.Context(), api.SubmitJobRequest{
				SessionToken: token,
				Input:        input,
				Style:        style,
				Chapters:     chapters,
				Format:       format,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Job queued: %s\n", job.Token)
			if !watch {
				fmt.Fprintf(out, "Track it with `panelsmith status %s --watch`\n", job.Token)
				return nil
			}
			return watchJob(cmd, client, job.Token)
		},
	}

	cmd.Flags().StringVar(&sessionToken, "session", "", "Existing session token (default: create one)")
	cmd.Flags().StringVar(&style, "style", "", "Art style hint passed to the analysis collaborator")
	cmd.Flags().StringVar(&chapters, "chapters", "", "Chapter selector: all, N, or N-M (default all)")
	cmd.Flags().StringVar(&format, "format", "", "Artifact format: pdf, png, or cbz (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll progress until the job finishes")
	return cmd
}
