package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOpenRunLogTeesToFile(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	base := slog.New(newConsoleHandler(&buf, slog.LevelInfo, false))

	runLog, err := OpenRunLog(base, dir, "info", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	if filepath.Base(runLog.Path) != "batch-20260304T050607Z.log" {
		t.Fatalf("Path = %q", runLog.Path)
	}
	if matched, _ := filepath.Match(RunLogPattern, filepath.Base(runLog.Path)); !matched {
		t.Fatal("run log name must match RunLogPattern")
	}
	runLog.Logger.Info("batch started", String("folder", "/videos"))
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(runLog.Path)
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"batch started"`) || !strings.Contains(string(data), `"folder":"/videos"`) {
		t.Fatalf("unexpected run log content %q", data)
	}
	if !strings.Contains(buf.String(), "batch started") {
		t.Fatalf("console copy missing: %q", buf.String())
	}
}

func TestOpenRunLogWithoutDir(t *testing.T) {
	base := NewNop()
	runLog, err := OpenRunLog(base, "", "info", time.Now())
	if err != nil {
		t.Fatalf("OpenRunLog: %v", err)
	}
	if runLog.Logger != base || runLog.Path != "" {
		t.Fatalf("expected base logger to be returned unchanged")
	}
	if err := runLog.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
