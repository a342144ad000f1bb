package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chapterize/internal/app"
	"chapterize/internal/remux"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var chaptersPath string
	var overwrite bool
	var createNew bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "apply <video>",
		Short: "Embed a video's chapter file into the video",
		Long: `Embed a video's chapter file into the video.

Chapters are read from <video base>.txt unless --chapters names another file.
Existing chapters are stripped first. By default the result is written to
<video base>_chapters<ext>; --overwrite replaces the original instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if overwrite && createNew {
				return fmt.Errorf("--overwrite and --new are mutually exclusive")
			}
			var mode remux.Mode
			switch {
			case overwrite:
				mode = remux.ModeOverwrite
			case createNew:
				mode = remux.ModeNew
			}

			svc := ctx.serviceValue()
			task, err := svc.StartApply(cmd.Context(), app.ApplyRequest{
				VideoPath:    args[0],
				ChaptersPath: chaptersPath,
				Mode:         mode,
			})
			if err != nil {
				return err
			}
			if !jsonOutput {
				fmt.Fprintf(cmd.ErrOrStderr(), "Applying chapters to %s\n", args[0])
			}
			outcome, err := task.Wait()
			if jsonOutput {
				if encErr := writeJSON(cmd, applyView(outcome, err)); encErr != nil {
					return encErr
				}
				return err
			}
			printDiagnostics(cmd.ErrOrStderr(), outcome.Diagnostics, outcome.Warnings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderChapterTable(outcome.Chapters))
			fmt.Fprintf(out, "Wrote %s with %s\n", outcome.Result.OutputPath, pluralize(len(outcome.Chapters), "chapter", "chapters"))
			if outcome.Result.BackupPath != "" {
				fmt.Fprintf(out, "Original kept at %s\n", outcome.Result.BackupPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&chaptersPath, "chapters", "", "Chapter file to use instead of <video base>.txt")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace the original video")
	cmd.Flags().BoolVar(&createNew, "new", false, "Write a new file next to the original (overrides remux.mode)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type applyJSON struct {
	Output      string           `json:"output,omitempty"`
	Backup      string           `json:"backup,omitempty"`
	Chapters    []chapterView    `json:"chapters"`
	Diagnostics []diagnosticView `json:"diagnostics"`
	Warnings    []string         `json:"warnings"`
	Error       string           `json:"error,omitempty"`
}

func applyView(outcome app.ApplyOutcome, err error) applyJSON {
	view := applyJSON{
		Output:      outcome.Result.OutputPath,
		Backup:      outcome.Result.BackupPath,
		Chapters:    chapterViews(outcome.Chapters),
		Diagnostics: diagnosticViews(outcome.Diagnostics),
		Warnings:    nonNil(outcome.Warnings),
	}
	if err != nil {
		view.Error = err.Error()
	}
	return view
}
