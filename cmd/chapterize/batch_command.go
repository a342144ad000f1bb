package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"chapterize/internal/app"
	"chapterize/internal/batch"
	"chapterize/internal/remux"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool
	var createNew bool
	var jsonOutput bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Apply companion chapter files to every video in a folder",
		Long: `Apply companion chapter files to every video in a folder.

Each video is processed in name order. Videos without a <base>.txt file, or
whose file holds no chapters, are skipped. A failure on one video is recorded
in the report and the run continues with the next one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if overwrite && createNew {
				return errors.New("--overwrite and --new are mutually exclusive")
			}
			var mode remux.Mode
			switch {
			case overwrite:
				mode = remux.ModeOverwrite
			case createNew:
				mode = remux.ModeNew
			}

			var observer batch.Observer
			var progress *batchProgress
			if !quiet && !jsonOutput {
				progress = newBatchProgress(cmd.ErrOrStderr())
				observer = progress
			}

			svc := ctx.serviceValue()
			task, err := svc.StartBatch(cmd.Context(), app.BatchRequest{
				Folder:   args[0],
				Mode:     mode,
				Observer: observer,
			})
			if err != nil {
				return err
			}
			report, runErr := task.Wait()
			if progress != nil {
				progress.finish()
			}
			if report.RunID == "" {
				return runErr
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printBatchReport(cmd.OutOrStdout(), report)
				printItemWarnings(cmd.ErrOrStderr(), report)
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace each original video")
	cmd.Flags().BoolVar(&createNew, "new", false, "Write new files next to the originals (overrides batch.mode)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show progress")
	return cmd
}

func printBatchReport(w io.Writer, report batch.Report) {
	fmt.Fprintf(w, "Run %s  %s  (%s)\n", shortID(report.RunID), report.Folder, report.Mode)
	if len(report.Items) == 0 {
		fmt.Fprintln(w, "No video files found")
		return
	}
	rows := make([][]string, 0, len(report.Items))
	for i, item := range report.Items {
		output := ""
		if item.OutputPath != "" {
			output = filepath.Base(item.OutputPath)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			item.FileName(),
			item.Outcome.String(),
			strconv.Itoa(item.Chapters),
			output,
		})
	}
	counts := report.Counts()
	fmt.Fprintln(w, renderTable(tableSpec{
		headers:   []string{"#", "File", "Outcome", "Chapters", "Output"},
		aligns:    []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		maxWidths: []int{0, 40, 60, 0, 40},
		footer: []string{"", "", fmt.Sprintf("%d ok, %d skipped, %d failed",
			counts.Succeeded, counts.Skipped, counts.Failed), "", ""},
	}, rows))
}

func printItemWarnings(w io.Writer, report batch.Report) {
	for _, item := range report.Items {
		for _, warning := range item.Warnings {
			fmt.Fprintf(w, "warning: %s: %s\n", item.FileName(), warning)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
