// Package toolexec runs external tools (ffmpeg, ffprobe, yt-dlp) to
// completion and harvests their output.
//
// Every call collects stdout, stderr, and the exit status. Callers that want
// live progress can pass an OnLine observer; it sees each line as it arrives
// but the collected Result is the same either way.
package toolexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"sync"
	"time"

	"chapterize/internal/services"
	"chapterize/internal/textutil"
)

// Stream identifies which output stream a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Command describes one external process invocation.
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration // zero means no bound beyond ctx
	OnLine  func(stream Stream, line string)
}

func (c Command) String() string {
	parts := append([]string{c.Binary}, c.Args...)
	return strings.Join(parts, " ")
}

// Result carries the harvested output of a finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes commands. Production code uses Exec; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) { return f(ctx, cmd) }

// WaitDelay bounds how long Run keeps reading output after the tool was
// cancelled or exited while a descendant still holds its pipes.
const WaitDelay = 2 * time.Second

// Exec is the os/exec backed Runner.
var Exec Runner = RunnerFunc(Run)

// Run starts cmd, waits for it, and returns its output. A binary that cannot
// be found yields services.ErrToolMissing. A non-zero exit or a timeout yields
// an *ExitError.
func Run(ctx context.Context, cmd Command) (Result, error) {
	if strings.TrimSpace(cmd.Binary) == "" {
		return Result{}, services.Wrap(services.ErrToolMissing, "toolexec", "run", "no binary configured", nil)
	}
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.WaitDelay = WaitDelay
	isolate(proc)

	// Output always flows through exec's own copy goroutines so WaitDelay
	// applies. With an observer those goroutines feed in-process pipes.
	var stdout, stderr bytes.Buffer
	var outR, errR *io.PipeReader
	var outW, errW *io.PipeWriter
	if cmd.OnLine == nil {
		proc.Stdout = &stdout
		proc.Stderr = &stderr
	} else {
		outR, outW = io.Pipe()
		errR, errW = io.Pipe()
		proc.Stdout = outW
		proc.Stderr = errW
	}

	started := time.Now()
	if err := proc.Start(); err != nil {
		if outW != nil {
			_ = outW.Close()
			_ = errW.Close()
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return Result{}, services.Wrap(services.ErrToolMissing, "toolexec", "start", cmd.Binary, err)
		}
		return Result{}, fmt.Errorf("start %s: %w", cmd.Binary, err)
	}
	var wg sync.WaitGroup
	if cmd.OnLine != nil {
		var mu sync.Mutex
		observe := func(stream Stream, line string) {
			mu.Lock()
			defer mu.Unlock()
			cmd.OnLine(stream, line)
		}
		wg.Add(2)
		go scanLines(&wg, outR, &stdout, Stdout, observe)
		go scanLines(&wg, errR, &stderr, Stderr, observe)
	}
	waitErr := proc.Wait()
	if cmd.OnLine != nil {
		_ = outW.Close()
		_ = errW.Close()
		wg.Wait()
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: proc.ProcessState.ExitCode(),
		Duration: time.Since(started),
	}
	// A clean exit whose descendants kept the pipes open past WaitDelay still
	// counts as success; the output read so far is kept.
	if waitErr == nil || (errors.Is(waitErr, exec.ErrWaitDelay) && result.ExitCode == 0 && ctx.Err() == nil) {
		return result, nil
	}
	return result, &ExitError{
		Binary:   cmd.Binary,
		Args:     append([]string(nil), cmd.Args...),
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:      waitErr,
	}
}

// scanLines copies r into buf line by line, reporting each line to observe.
// Carriage returns split lines too so in-place progress updates are seen.
func scanLines(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer, stream Stream, observe func(Stream, string)) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanCRLF)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			observe(stream, trimmed)
		}
	}
	_, _ = io.Copy(io.Discard, r)
}

func scanCRLF(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ExitError reports a process that ran but did not succeed.
type ExitError struct {
	Binary   string
	Args     []string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *ExitError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("%s timed out: %s", e.Binary, e.Diagnostic())
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Binary, e.ExitCode, e.Diagnostic())
}

// Unwrap exposes the service markers alongside the underlying exec error.
func (e *ExitError) Unwrap() []error {
	errs := []error{services.ErrExternalTool}
	if e.TimedOut {
		errs = append(errs, services.ErrTimeout)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind classifies the failure for reports.
func (e *ExitError) ErrorKind() string {
	if e.TimedOut {
		return "timeout"
	}
	return "process"
}

// Diagnostic returns the last non-empty stderr lines, or the exec error when
// stderr is empty.
func (e *ExitError) Diagnostic() string {
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < diagnosticLines; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append([]string{line}, kept...)
		}
	}
	if len(kept) == 0 {
		if e.Err != nil {
			return e.Err.Error()
		}
		return "no diagnostic output"
	}
	return textutil.Truncate(strings.Join(kept, " | "), diagnosticRunes)
}

const (
	diagnosticLines = 3
	diagnosticRunes = 500
)
