package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"panelsmith/internal/api"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage credential sessions",
	}

	sessionCmd.AddCommand(newSessionCreateCommand(ctx))
	sessionCmd.AddCommand(newSessionAttachCommand(ctx))

	return sessionCmd
}

func newSessionCreateCommand(ctx *commandContext) *cobra.Command {
	var analysisKey string
	var synthesisKey string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session and optionally attach collaborator keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()

			view, err := client.CreateSession(cmd.Context())
			if err != nil {
				return err
			}

			creds := resolveCredentialFlags(analysisKey, synthesisKey)
			if creds.AnalysisKey != "" || creds.SynthesisKey != "" {
				view, err = client.AttachCredentials(cmd.Context(), view.Token, creds)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:     %s\n", view.Token)
			fmt.Fprintf(out, "Expires:     %s\n", view.ExpiresAt)
			fmt.Fprintf(out, "Credentials: %s\n", yesNo(view.HasCredentials))
			return nil
		},
	}

	cmd.Flags().StringVar(&analysisKey, "analysis-key", "", "Story analysis API key (default $PANELSMITH_ANALYSIS_API_KEY)")
	cmd.Flags().StringVar(&synthesisKey, "synthesis-key", "", "Image synthesis API key (default $PANELSMITH_SYNTHESIS_API_KEY or $OPENAI_API_KEY)")
	return cmd
}

func newSessionAttachCommand(ctx *commandContext) *cobra.Command {
	var analysisKey string
	var synthesisKey string

	cmd := &cobra.Command{
		Use:   "attach <session-token>",
		Short: "Attach collaborator keys to an existing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := resolveCredentialFlags(analysisKey, synthesisKey)
			if creds.AnalysisKey == "" && creds.SynthesisKey == "" {
				return errors.New("no credentials supplied; pass --analysis-key/--synthesis-key or set the corresponding environment variables")
			}

			view, err := ctx.client().AttachCredentials(cmd.Context(), args[0], creds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials attached to session %s\n", shortToken(view.Token))
			return nil
		},
	}

	cmd.Flags().StringVar(&analysisKey, "analysis-key", "", "Story analysis API key (default $PANELSMITH_ANALYSIS_API_KEY)")
	cmd.Flags().StringVar(&synthesisKey, "synthesis-key", "", "Image synthesis API key (default $PANELSMITH_SYNTHESIS_API_KEY or $OPENAI_API_KEY)")
	return cmd
}

func resolveCredentialFlags(analysisKey, synthesisKey string) api.AttachCredentialsRequest {
	return api.AttachCredentialsRequest{
		AnalysisKey:  firstNonEmpty(analysisKey, os.Getenv("PANELSMITH_ANALYSIS_API_KEY")),
		SynthesisKey: firstNonEmpty(synthesisKey, os.Getenv("PANELSMITH_SYNTHESIS_API_KEY"), os.Getenv("OPENAI_API_KEY")),
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
