package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCommandPrintsCanonicalList(t *testing.T) {
	env := setupCLITestEnv(t)
	path := writeFile(t, filepath.Join(t.TempDir(), "movie.txt"), "Intro - 0:00\nnot a chapter\n1:30 Second\n")

	out, errOut, err := runCLI(t, env, "", "parse", path)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out != "00:00:00:00 Intro\n00:01:30:00 Second\n" {
		t.Fatalf("unexpected output %q", out)
	}
	requireContains(t, errOut, "skipped line 2")

	// the source file is untouched without --write
	if got := readFile(t, path); !strings.HasPrefix(got, "Intro - 0:00") {
		t.Fatalf("file changed: %q", got)
	}

	if _, _, err := runCLI(t, env, "", "parse", "--write", path); err != nil {
		t.Fatalf("parse --write: %v", err)
	}
	if got := readFile(t, path); got != "00:00:00:00 Intro\n00:01:30:00 Second\n" {
		t.Fatalf("rewritten file = %q", got)
	}
}

func TestParseWriteLeavesUnparseableFileAlone(t *testing.T) {
	env := setupCLITestEnv(t)
	original := "my private notes\nno timecodes here\n"
	path := writeFile(t, filepath.Join(t.TempDir(), "notes.txt"), original)

	_, _, err := runCLI(t, env, "", "parse", "--write", path)
	if err == nil || !strings.Contains(err.Error(), "no chapters") {
		t.Fatalf("expected no chapters error, got %v", err)
	}
	if got := readFile(t, path); got != original {
		t.Fatalf("file was rewritten: %q", got)
	}
}

func TestParseCommandInputs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "0:00 A\n0:10 B\n", "parse", "-")
	if err != nil {
		t.Fatalf("parse stdin: %v", err)
	}
	requireContains(t, out, "00:00:10:00 B")

	origRead, origWrite := readClipboard, writeClipboard
	t.Cleanup(func() { readClipboard, writeClipboard = origRead, origWrite })
	var copied string
	readClipboard = func() (string, error) { return "Start 0:00\nEnd 2:00", nil }
	writeClipboard = func(text string) error { copied = text; return nil }

	out, _, err = runCLI(t, env, "", "parse", "--from-clipboard", "--to-clipboard")
	if err != nil {
		t.Fatalf("parse clipboard: %v", err)
	}
	requireContains(t, out, "00:02:00:00 End")
	if copied != "00:00:00:00 Start\n00:02:00:00 End" {
		t.Fatalf("clipboard got %q", copied)
	}

	readClipboard = func() (string, error) { return "", errors.New("no clipboard") }
	if _, _, err := runCLI(t, env, "", "parse", "--from-clipboard"); err == nil || !strings.Contains(err.Error(), "read clipboard") {
		t.Fatalf("expected clipboard error, got %v", err)
	}
}

func TestParseCommandJSONAndErrors(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "0:00 A\n0:30 A\n0:30 A\njunk\n", "parse", "--json")
	if err != nil {
		t.Fatalf("parse --json: %v", err)
	}
	var payload struct {
		Chapters []struct {
			Timecode string `json:"timecode"`
			StartMS  int64  `json:"start_ms"`
		} `json:"chapters"`
		Diagnostics []struct {
			Line int `json:"line"`
		} `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(payload.Chapters) != 2 || payload.Chapters[1].StartMS != 30_000 {
		t.Fatalf("unexpected chapters %+v", payload.Chapters)
	}
	if len(payload.Diagnostics) != 1 || payload.Diagnostics[0].Line != 4 {
		t.Fatalf("unexpected diagnostics %+v", payload.Diagnostics)
	}

	if _, _, err := runCLI(t, env, "nothing here\n", "parse"); err == nil || !strings.Contains(err.Error(), "no chapters") {
		t.Fatalf("expected no chapters error, got %v", err)
	}
	if _, _, err := runCLI(t, env, "", "parse", "--write"); err == nil {
		t.Fatal("--write without a file should fail")
	}
}

func TestApplyCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()
	video := writeFile(t, filepath.Join(dir, "movie.mp4"), "original")
	writeFile(t, filepath.Join(dir, "movie.txt"), "Opening - 0:00\nMiddle - 30:00\n")

	out, _, err := runCLI(t, env, "", "apply", video)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	output := filepath.Join(dir, "movie_chapters.mp4")
	requireContains(t, out, "Wrote "+output+" with 2 chapters")
	requireContains(t, out, "Middle")
	if got := readFile(t, output); got != "remuxed" {
		t.Fatalf("output content %q", got)
	}
	if got := readFile(t, video); got != "original" {
		t.Fatalf("original modified: %q", got)
	}

	other := writeFile(t, filepath.Join(dir, "alt.txt"), "0:00 Only")
	if _, _, err := runCLI(t, env, "", "apply", "--overwrite", "--chapters", other, video); err != nil {
		t.Fatalf("apply --overwrite: %v", err)
	}
	if got := readFile(t, video); got != "remuxed" {
		t.Fatalf("video not replaced: %q", got)
	}
}

func TestApplyCommandFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := t.TempDir()

	lonely := writeFile(t, filepath.Join(dir, "lonely.mp4"), "x")
	if _, _, err := runCLI(t, env, "", "apply", lonely); err == nil || !strings.Contains(err.Error(), "no chapter file") {
		t.Fatalf("expected missing chapter file error, got %v", err)
	}

	bad := writeFile(t, filepath.Join(dir, "broken.mp4"), "x")
	writeFile(t, filepath.Join(dir, "broken.txt"), "0:00 Start")
	_, _, err := runCLI(t, env, "", "apply", bad)
	if err == nil || !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected ffmpeg failure, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "broken_chapters.mp4")); !os.IsNotExist(statErr) {
		t.Fatalf("no output expected after failure: %v", statErr)
	}
	entries, _ := os.ReadDir(dir)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Fatalf("scratch file left behind: %s", entry.Name())
		}
	}
}

func TestBatchCommandReportsEveryFile(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "a.mp4"), "x")
	writeFile(t, filepath.Join(folder, "a.txt"), "0:00 Start\n1:00 Next")
	writeFile(t, filepath.Join(folder, "b.mkv"), "x")
	writeFile(t, filepath.Join(folder, "broken.mp4"), "x")
	writeFile(t, filepath.Join(folder, "broken.txt"), "0:00 Start")
	writeFile(t, filepath.Join(folder, "notes.doc"), "x")

	out, errOut, err := runCLI(t, env, "", "batch", folder)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	requireContains(t, out, "a.mp4")
	requireContains(t, out, "Success")
	requireContains(t, out, "SkippedNoChapters")
	requireContains(t, out, "Failed:")
	requireContains(t, out, "1 ok, 1 skipped, 1 failed")
	requireContains(t, errOut, "[3/3] broken.mp4")
	if strings.Contains(out, "notes.doc") {
		t.Fatal("non-video files must not be reported")
	}
	if got := readFile(t, filepath.Join(folder, "a_chapters.mp4")); got != "remuxed" {
		t.Fatalf("output content %q", got)
	}

	logs, _ := filepath.Glob(filepath.Join(env.logDir, "batch-*.log"))
	if len(logs) != 1 {
		t.Fatalf("expected a per-run log, got %v", logs)
	}
}

func TestBatchCommandJSONAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "clip.mp4"), "x")
	writeFile(t, filepath.Join(folder, "clip.txt"), "0:00 Start")

	out, _, err := runCLI(t, env, "", "batch", "--json", folder)
	if err != nil {
		t.Fatalf("batch --json: %v", err)
	}
	var report struct {
		RunID  string `json:"run_id"`
		Counts struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
		} `json:"counts"`
		Items []struct {
			OutputPath string `json:"output_path"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.RunID == "" || report.Counts.Total != 1 || report.Counts.Succeeded != 1 {
		t.Fatalf("unexpected report %+v", report)
	}

	out, _, err = runCLI(t, env, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, report.RunID[:8])
	requireContains(t, out, "finished")

	out, _, err = runCLI(t, env, "", "history", "show", report.RunID[:6])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "clip.mp4")
	requireContains(t, out, "Success")

	if _, _, err := runCLI(t, env, "", "history", "show", "zzzz"); err == nil {
		t.Fatal("expected unknown run error")
	}
	out, _, err = runCLI(t, env, "", "history", "prune", "--older-than", "1")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 0 runs")
}

func TestBatchCommandMissingFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "", "batch", filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("expected an error for a missing folder")
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "", "deps")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "FFmpeg")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "ffmpeg version 9.9-test")

	missing := setupCLITestEnv(t, `ffmpeg = "/nonexistent/ffmpeg"`)
	out, _, err = runCLI(t, missing, "", "deps")
	if err == nil || !strings.Contains(err.Error(), "FFmpeg") {
		t.Fatalf("expected missing FFmpeg error, got %v", err)
	}
	requireContains(t, out, "[MISSING]")
	requireContains(t, out, `binary "/nonexistent/ffmpeg" not found`)
}

func TestAuthorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "a.mp4"), "x")
	writeFile(t, filepath.Join(folder, "b.mp4"), "x")
	writeFile(t, filepath.Join(folder, "b.txt"), "0:00 Old")
	writeFile(t, filepath.Join(folder, "c.mp4"), "x")

	stdin := "Start - 0:00\nNext - 1:00\n.\nskip\nquit\n"
	out, _, err := runCLI(t, env, stdin, "author", "--normalize", folder)
	if err != nil {
		t.Fatalf("author: %v", err)
	}
	requireContains(t, out, "[1/3] a.mp4")
	requireContains(t, out, "Existing b.txt")
	requireContains(t, out, "0:00 Old")
	requireContains(t, out, "Saved 1 chapter file, skipped 1")
	if !strings.Contains(out, "[3/3]") {
		t.Fatalf("quit should be read at the third video: %q", out)
	}
	if got := readFile(t, filepath.Join(folder, "a.txt")); got != "00:00:00:00 Start\n00:01:00:00 Next\n" {
		t.Fatalf("a.txt = %q", got)
	}
	if got := readFile(t, filepath.Join(folder, "b.txt")); got != "0:00 Old" {
		t.Fatalf("b.txt changed: %q", got)
	}
	if _, err := os.Stat(filepath.Join(folder, "c.txt")); !os.IsNotExist(err) {
		t.Fatalf("c.txt should not exist: %v", err)
	}
}

func TestAuthorCommandKeepsTypedTextAndOnlyMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "a.mp4"), "x")
	writeFile(t, filepath.Join(folder, "a.txt"), "0:00 Done")
	writeFile(t, filepath.Join(folder, "b.mp4"), "x")

	out, _, err := runCLI(t, env, "0:00 Start\n2:00 End\n", "author", "--only-missing", folder)
	if err != nil {
		t.Fatalf("author: %v", err)
	}
	if strings.Contains(out, "a.mp4") {
		t.Fatalf("a.mp4 already has chapters: %q", out)
	}
	if got := readFile(t, filepath.Join(folder, "b.txt")); got != "0:00 Start\n2:00 End\n" {
		t.Fatalf("b.txt = %q", got)
	}
}

func TestAuthorNormalizeSavesNothingWithoutChapters(t *testing.T) {
	env := setupCLITestEnv(t)
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "a.mp4"), "x")

	out, _, err := runCLI(t, env, "just some words\n.\n", "author", "--normalize", folder)
	if err != nil {
		t.Fatalf("author: %v", err)
	}
	requireContains(t, out, "No chapters recognised; nothing saved")
	if _, err := os.Stat(filepath.Join(folder, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("a.txt should not exist: %v", err)
	}
}

func TestCleanCommand(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, filepath.Join(dir, "movie.mp4"), "x")
	writeFile(t, filepath.Join(dir, "movie.txt"), "0:00 A")
	writeFile(t, filepath.Join(dir, "movie_chapters.txt"), "0:00 A")

	out, _, err := runCLI(t, nil, "", "clean", video)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	requireContains(t, out, "movie_chapters.txt")
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the video to remain, got %d entries", len(entries))
	}

	out, _, err = runCLI(t, nil, "", "clean", video)
	if err != nil {
		t.Fatalf("second clean: %v", err)
	}
	requireContains(t, out, "No chapter files found")
}

func TestDownloadCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, errOut, err := runCLI(t, env, "", "download", "https://example.com/watch?v=1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	requireContains(t, out, "Downloaded")
	requireContains(t, errOut, "download 100%")
	files, _ := filepath.Glob(filepath.Join(env.downloads, "*.mp4"))
	if len(files) != 1 {
		t.Fatalf("expected one downloaded file, got %v", files)
	}
}

func TestProbeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	video := writeFile(t, filepath.Join(t.TempDir(), "movie.mp4"), "x")

	out, _, err := runCLI(t, env, "", "probe", video)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "Duration: 01:00:00:00")
	requireContains(t, out, "1 video, 1 audio, 0 subtitle")
	requireContains(t, out, "Opening")

	out, _, err = runCLI(t, env, "", "probe", "--json", video)
	if err != nil {
		t.Fatalf("probe --json: %v", err)
	}
	if !json.Valid([]byte(out)) {
		t.Fatalf("invalid json: %s", out)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.stateDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, nil, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, nil, "", "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
}

func TestInvalidLogLevelFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "", "--log-level", "loud", "deps")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}
