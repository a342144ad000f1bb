package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chapterize/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that ffmpeg, ffprobe, and yt-dlp can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := ctx.serviceValue().Dependencies(cmd.Context())
			if jsonOutput {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				writeLines(out, renderSectionHeader("External tools", colorize))
				for _, status := range statuses {
					fmt.Fprintln(out, renderStatusLine(status.Name, dependencyKind(status), dependencyMessage(status), colorize))
				}
			}
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func dependencyKind(status deps.Status) statusKind {
	switch {
	case status.Available:
		return statusOK
	case status.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func dependencyMessage(status deps.Status) string {
	if !status.Available {
		msg := status.Description
		if status.Detail != "" {
			msg = status.Detail + "; " + msg
		}
		if status.Optional {
			msg += " (optional)"
		}
		return msg
	}
	msg := status.Command
	if status.Source != "" {
		msg += " [" + status.Source + "]"
	}
	if status.Version != "" {
		msg += " " + status.Version
	}
	return msg
}
