package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chapterize/internal/chapters"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "clean <video>...",
		Short:       "Remove chapter text files belonging to videos",
		Long:        "Remove <base>.txt and <base>_chapters.txt next to each video. The videos are not touched.",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var errs []error
			total := 0
			for _, video := range args {
				removed, err := chapters.RemoveRelated(video)
				for _, path := range removed {
					fmt.Fprintf(out, "Removed %s\n", path)
				}
				total += len(removed)
				if err != nil {
					errs = append(errs, err)
				}
			}
			if total == 0 && len(errs) == 0 {
				fmt.Fprintln(out, "No chapter files found")
			}
			return errors.Join(errs...)
		},
	}
}
