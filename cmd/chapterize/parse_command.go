package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chapterize/internal/chapters"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var fromClipboard bool
	var toClipboard bool
	var write bool
	var asTable bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Parse chapter text and print the canonical chapter list",
		Long: `Parse chapter text and print the canonical chapter list.

Text is read from the given file, from stdin when the argument is "-" or
missing, or from the clipboard with --from-clipboard. Lines that do not
contain a timecode are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 && args[0] != "-" {
				path = args[0]
			}
			if write && path == "" {
				return errors.New("--write needs a chapter file argument")
			}
			if fromClipboard && path != "" {
				return errors.New("--from-clipboard cannot be combined with a file argument")
			}

			var text string
			var err error
			switch {
			case fromClipboard:
				text, err = clipboardText()
			case path != "":
				text, err = chapters.ReadCompanion(path)
			default:
				text, err = chapters.DecodeText(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			list, diags := chapters.Prepare(text, cfg.ChapterOptions())
			warnings := orderWarnings(list)

			if jsonOutput {
				if err := writeJSON(cmd, struct {
					Chapters    []chapterView    `json:"chapters"`
					Diagnostics []diagnosticView `json:"diagnostics"`
					Warnings    []string         `json:"warnings"`
				}{chapterViews(list), diagnosticViews(diags), nonNil(warnings)}); err != nil {
					return err
				}
			} else {
				printDiagnostics(cmd.ErrOrStderr(), diags, warnings)
			}
			if len(list) == 0 {
				return errors.New("no chapters found")
			}

			if !jsonOutput {
				out := cmd.OutOrStdout()
				if asTable {
					fmt.Fprintln(out, renderChapterTable(list))
				} else {
					fmt.Fprint(out, list.Text())
				}
			}
			if toClipboard {
				if err := copyToClipboard(strings.TrimRight(list.Text(), "\n")); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Copied chapter list to the clipboard")
			}
			if write {
				if err := chapters.WriteCompanion(path, list); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Rewrote %s with %s\n", path, pluralize(len(list), "chapter", "chapters"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromClipboard, "from-clipboard", false, "Read chapter text from the clipboard")
	cmd.Flags().BoolVar(&toClipboard, "to-clipboard", false, "Copy the canonical chapter list to the clipboard")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the chapter file in canonical layout")
	cmd.Flags().BoolVar(&asTable, "table", false, "Render chapters as a table")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
