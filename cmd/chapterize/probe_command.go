package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chapterize/internal/timecode"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe <video>",
		Short: "Show a video's duration, streams, and embedded chapters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.serviceValue()
			task, err := svc.StartProbe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result, err := task.Wait()
			if err != nil {
				return err
			}

			if jsonOutput {
				raw := result.RawJSON()
				if len(raw) > 0 && json.Valid(raw) {
					return writeJSON(cmd, json.RawMessage(raw))
				}
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			duration := "unknown"
			if ms, ok := result.DurationMS(); ok {
				duration = timecode.FromMilliseconds(ms).Canonical()
			}
			fmt.Fprintf(out, "File:     %s\n", args[0])
			fmt.Fprintf(out, "Duration: %s\n", duration)
			fmt.Fprintf(out, "Streams:  %d video, %d audio, %d subtitle\n",
				result.StreamCount("video"), result.StreamCount("audio"), result.StreamCount("subtitle"))

			if len(result.Chapters) == 0 {
				fmt.Fprintln(out, "Chapters: none")
				return nil
			}
			rows := make([][]string, 0, len(result.Chapters))
			for i, chapter := range result.Chapters {
				start := timecode.FromMilliseconds(int64(chapter.StartSeconds() * 1000)).Canonical()
				rows = append(rows, []string{strconv.Itoa(i + 1), start, chapter.Title()})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"#", "Start", "Title"},
				aligns:  []columnAlignment{alignRight, alignLeft, alignLeft},
			}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw ffprobe JSON")
	return cmd
}
