package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chapterize/internal/batch"
	"chapterize/internal/chapters"
	"chapterize/internal/config"
	"chapterize/internal/fsaccess"
)

const (
	authorEnd  = "."
	authorSkip = "skip"
	authorQuit = "quit"
)

func newAuthorCommand(ctx *commandContext) *cobra.Command {
	var normalize bool
	var onlyMissing bool

	cmd := &cobra.Command{
		Use:   "author <folder>",
		Short: "Type companion chapter files for each video in a folder",
		Long: `Type companion chapter files for each video in a folder.

Videos are visited in name order. For each one, any existing <base>.txt is
shown, then chapter lines are read from stdin until a line containing only
".". Enter "skip" to leave a video alone or "quit" to stop.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			videos, err := batch.ListVideos(cmd.Context(), args[0], cfg.Batch.Extensions,
				fsaccess.Options{BaseDelay: cfg.AccessRetryDelay(), Logger: ctx.loggerValue()})
			if err != nil {
				return err
			}
			if err := fsaccess.CheckDirectory(args[0], true); err != nil {
				return err
			}
			session := &authorSession{
				in:          bufio.NewScanner(cmd.InOrStdin()),
				out:         cmd.OutOrStdout(),
				cfg:         cfg,
				normalize:   normalize,
				onlyMissing: onlyMissing,
			}
			return session.run(cmd.Context(), videos)
		},
	}

	cmd.Flags().BoolVar(&normalize, "normalize", false, "Save chapters in canonical \"HH:MM:SS:FF Title\" layout")
	cmd.Flags().BoolVar(&onlyMissing, "only-missing", false, "Visit only videos without a chapter file")
	return cmd
}

type authorSession struct {
	in          *bufio.Scanner
	out         io.Writer
	cfg         *config.Config
	normalize   bool
	onlyMissing bool

	saved   int
	skipped int
}

var errAuthorQuit = errors.New("quit")

func (s *authorSession) run(ctx context.Context, videos []string) error {
	if len(videos) == 0 {
		fmt.Fprintln(s.out, "No video files found")
		return nil
	}
	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.visit(i, len(videos), video)
		if errors.Is(err, errAuthorQuit) {
			break
		}
		if err != nil {
			return err
		}
	}
	fmt.Fprintf(s.out, "\nSaved %s, skipped %d\n", pluralize(s.saved, "chapter file", "chapter files"), s.skipped)
	return nil
}

func (s *authorSession) visit(index, total int, video string) error {
	companion := chapters.CompanionPath(video)
	existing, err := chapters.ReadCompanion(companion)
	hasExisting := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if hasExisting && s.onlyMissing {
		return nil
	}

	fmt.Fprintf(s.out, "\n[%d/%d] %s\n", index+1, total, filepath.Base(video))
	if hasExisting {
		fmt.Fprintf(s.out, "Existing %s:\n", filepath.Base(companion))
		for line := range strings.Lines(strings.TrimRight(existing, "\n")) {
			fmt.Fprintf(s.out, "  %s", line)
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "Enter chapters, end with %q (%q to skip, %q to stop):\n", authorEnd, authorSkip, authorQuit)

	lines, command, eof := s.readBlock()
	switch command {
	case authorQuit:
		return errAuthorQuit
	case authorSkip:
		s.skipped++
		return nil
	}
	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(s.out, "Nothing entered; left unchanged")
		s.skipped++
		if eof {
			return errAuthorQuit
		}
		return nil
	}

	list, diags := chapters.Prepare(text, s.cfg.ChapterOptions())
	printDiagnostics(s.out, diags, orderWarnings(list))
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No chapters recognised; nothing saved")
		s.skipped++
	} else {
		if s.normalize {
			err = chapters.WriteCompanion(companion, list)
		} else {
			err = chapters.WriteCompanionText(companion, text)
		}
		if err != nil {
			return err
		}
		s.saved++
		fmt.Fprintf(s.out, "Saved %s (%s)\n", filepath.Base(companion), pluralize(len(list), "chapter", "chapters"))
	}
	if eof {
		return errAuthorQuit
	}
	return nil
}

// readBlock collects lines up to the terminator. A first line of "skip" or
// "quit" is returned as a command instead.
func (s *authorSession) readBlock() (lines []string, command string, eof bool) {
	for s.in.Scan() {
		line := strings.TrimRight(s.in.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if len(lines) == 0 {
			switch strings.ToLower(trimmed) {
			case authorSkip, authorQuit:
				return nil, strings.ToLower(trimmed), false
			}
		}
		if trimmed == authorEnd {
			return lines, "", false
		}
		lines = append(lines, line)
	}
	return lines, "", true
}
