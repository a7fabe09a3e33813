package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"panelsmith/internal/api"
)

// readStoryInput loads the story text from a file, or from stdin when the
// argument is "-".
func readStoryInput(arg string, stdin io.Reader) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read story from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read story file: %w", err)
	}
	return string(data), nil
}

func printJob(out io.Writer, view *api.JobView) {
	if view == nil {
		return
	}
	fmt.Fprintf(out, "Job:      %s\n", view.Token)
	fmt.Fprintf(out, "Status:   %s\n", view.Status)
	fmt.Fprintf(out, "Progress: %d%%\n", view.Progress)
	if view.Stage != "" {
		fmt.Fprintf(out, "Stage:    %s\n", view.Stage)
	}
	if view.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", view.ErrorMessage)
	}
	if view.Result != nil {
		fmt.Fprintf(out, "Result:   %d pages, %d panels, %s (est. $%.2f)\n",
			view.Result.Pages, view.Result.Panels, view.Result.Format, view.Result.EstimatedCostUSD)
	}
}

// progressLine renders a single-line poll update for --watch mode.
func progressLine(view *api.JobView) string {
	stage := view.Stage
	if stage == "" {
		stage = view.Status
	}
	return fmt.Sprintf("[%3d%%] %s", view.Progress, stage)
}

func isTerminalStatus(status string) bool {
	switch status {
	case "completed", "failed":
		return true
	}
	return false
}

func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
