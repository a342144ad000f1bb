package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"chapterize/internal/services"
	"chapterize/internal/toolexec"
)

type fakeYtDlp struct {
	title    string
	ext      string
	lines    []string
	commands []toolexec.Command
	fail     bool
}

func (f *fakeYtDlp) Run(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.commands = append(f.commands, cmd)
	if slices.Contains(cmd.Args, "--get-title") {
		return toolexec.Result{Stdout: f.title + "\n"}, nil
	}
	for _, line := range f.lines {
		if cmd.OnLine != nil {
			cmd.OnLine(toolexec.Stdout, line)
		}
	}
	if f.fail {
		return toolexec.Result{}, &toolexec.ExitError{Binary: cmd.Binary, ExitCode: 1, Stderr: "ERROR: Unsupported URL"}
	}
	if f.ext != "" {
		idx := slices.Index(cmd.Args, "-o")
		out := strings.Replace(cmd.Args[idx+1], ".%(ext)s", f.ext, 1)
		if err := os.WriteFile(out, []byte("video"), 0o644); err != nil {
			return toolexec.Result{}, err
		}
	}
	return toolexec.Result{}, nil
}

func TestDownloadSanitizesTitleAndFindsOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	fake := &fakeYtDlp{
		title: `Talk: "Go" <live> 1/2?`,
		ext:   ".mkv",
		lines: []string{
			"[youtube] abc: Downloading webpage",
			"[download]   5.0% of 10.00MiB at 1.00MiB/s ETA 00:09",
			"[download]  55.5% of 10.00MiB at 1.00MiB/s ETA 00:04",
			"[download] 100% of 10.00MiB in 00:10",
			"[Merger] Merging formats into \"x.mp4\"",
		},
	}
	d := New(Options{YtDlp: "/opt/yt-dlp", Dir: dir}, nil).WithCommandRunner(fake)

	var progress []Progress
	result, err := d.Download(context.Background(), "https://example.com/v", func(p Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	wantPath := filepath.Join(dir, "Talk Go live 12.mkv")
	if result.Path != wantPath || result.Title != `Talk: "Go" <live> 1/2?` {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(fake.commands) != 2 {
		t.Fatalf("expected title and download calls, got %d", len(fake.commands))
	}
	args := strings.Join(fake.commands[1].Args, " ")
	for _, want := range []string{"-f bestvideo+bestaudio/best", "--merge-output-format mp4", "https://example.com/v"} {
		if !strings.Contains(args, want) {
			t.Fatalf("download args %q missing %q", args, want)
		}
	}
	if len(progress) != 4 {
		t.Fatalf("expected 4 progress updates, got %+v", progress)
	}
	if progress[1].Percent != 55.5 || progress[3].Phase != PhaseMerge || progress[3].Percent != -1 {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestDownloadMissingOutput(t *testing.T) {
	fake := &fakeYtDlp{title: "Clip"}
	_, err := New(Options{Dir: t.TempDir()}, nil).WithCommandRunner(fake).Download(context.Background(), "u", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestDownloadToolFailure(t *testing.T) {
	fake := &fakeYtDlp{title: "Clip", fail: true}
	_, err := New(Options{Dir: t.TempDir()}, nil).WithCommandRunner(fake).Download(context.Background(), "u", nil)
	var exitErr *toolexec.ExitError
	if !errors.As(err, &exitErr) || exitErr.Diagnostic() != "ERROR: Unsupported URL" {
		t.Fatalf("expected exit error, got %v", err)
	}
}

func TestTitleValidation(t *testing.T) {
	if _, err := New(Options{}, nil).Title(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	fake := &fakeYtDlp{title: ""}
	if _, err := New(Options{}, nil).WithCommandRunner(fake).Title(context.Background(), "u"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool for empty title, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(`???`); got != "video" {
		t.Fatalf("FileName fallback = %q", got)
	}
	if got := FileName(` A\B `); got != "AB" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestParseProgress(t *testing.T) {
	if _, ok := ParseProgress("[info] something"); ok {
		t.Fatal("info line should not parse")
	}
	p, ok := ParseProgress("[download] Destination: x.f137.mp4")
	if !ok || p.Percent != -1 || p.Phase != PhaseDownload {
		t.Fatalf("unexpected %+v", p)
	}
}
