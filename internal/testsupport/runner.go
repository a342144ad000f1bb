package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"chapterize/internal/toolexec"
)

// FakeTools answers tool invocations without running anything. ffmpeg calls
// write their last argument so callers see an output file; version probes
// print a version line; ffprobe returns Probe as JSON.
type FakeTools struct {
	mu       sync.Mutex
	Commands []toolexec.Command
	// FailFFmpeg makes every ffmpeg call exit 1 with this stderr when set.
	FailFFmpeg string
	Probe      string
}

// Run implements toolexec.Runner.
func (f *FakeTools) Run(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.mu.Lock()
	f.Commands = append(f.Commands, cmd)
	f.mu.Unlock()

	if slices.Contains(cmd.Args, "-version") || slices.Contains(cmd.Args, "--version") {
		return toolexec.Result{Stdout: "fake version 1.0\n"}, nil
	}
	if strings.Contains(cmd.Binary, "ffprobe") {
		return toolexec.Result{Stdout: f.Probe}, nil
	}
	if f.FailFFmpeg != "" {
		return toolexec.Result{ExitCode: 1}, &toolexec.ExitError{Binary: cmd.Binary, Args: cmd.Args, ExitCode: 1, Stderr: f.FailFFmpeg}
	}
	if len(cmd.Args) > 0 {
		if err := os.WriteFile(cmd.Args[len(cmd.Args)-1], []byte("remuxed"), 0o644); err != nil {
			return toolexec.Result{}, err
		}
	}
	return toolexec.Result{}, nil
}

// Calls returns the number of recorded invocations.
func (f *FakeTools) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Commands)
}

// CallsTo counts invocations whose binary name contains tool.
func (f *FakeTools) CallsTo(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, cmd := range f.Commands {
		if strings.Contains(filepath.Base(cmd.Binary), tool) {
			n++
		}
	}
	return n
}
