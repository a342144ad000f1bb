package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"chapterize/internal/chapters"
	"chapterize/internal/history"
	"chapterize/internal/media/ffprobe"
	"chapterize/internal/remux"
	"chapterize/internal/runstate"
	"chapterize/internal/services"
	"chapterize/internal/toolexec"
)

type fakeApplier struct {
	mu       sync.Mutex
	calls    []remux.ApplyRequest
	behavior map[string]func(remux.ApplyRequest) (remux.ApplyResult, error)
}

func (f *fakeApplier) Apply(_ context.Context, req remux.ApplyRequest) (remux.ApplyResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	fn := f.behavior[filepath.Base(req.VideoPath)]
	f.mu.Unlock()
	if req.OnStep != nil {
		req.OnStep(remux.StepStrip)
		req.OnStep(remux.StepInject)
	}
	if fn != nil {
		return fn(req)
	}
	return remux.ApplyResult{OutputPath: remux.OutputPath(req.VideoPath, req.Mode, ""), Chapters: len(req.Chapters)}, nil
}

func (f *fakeApplier) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, c := range f.calls {
		names = append(names, filepath.Base(c.VideoPath))
	}
	return names
}

type recordingObserver struct {
	states []State
	done   []string
}

func (o *recordingObserver) StateChanged(state State, _, _ int, _ string) {
	if n := len(o.states); n == 0 || o.states[n-1] != state {
		o.states = append(o.states, state)
	}
}

func (o *recordingObserver) ItemFinished(_, _ int, item Item) {
	o.done = append(o.done, item.FileName())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testOptions() Options {
	return Options{RetryDelay: -1}
}

func TestRunOutcomes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4", "v")
	writeFile(t, dir, "a.txt", "0:00 Opening\n1:30 Middle\n")
	writeFile(t, dir, "b.mkv", "v")
	writeFile(t, dir, "c.mp4", "v")
	writeFile(t, dir, "c.txt", "no timecodes here\n\n")
	writeFile(t, dir, "d.avi", "v")
	writeFile(t, dir, "d.txt", "2:00 Only")
	writeFile(t, dir, "e.MOV", "v")
	writeFile(t, dir, "e.txt", "0:10 Boom")
	writeFile(t, dir, "notes.txt", "0:10 not a video")
	writeFile(t, dir, ".hidden.mp4", "v")
	if err := os.Mkdir(filepath.Join(dir, "sub.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	longStderr := "header line\n" + strings.Repeat("x", 150)
	applier := &fakeApplier{behavior: map[string]func(remux.ApplyRequest) (remux.ApplyResult, error){
		"d.avi": func(req remux.ApplyRequest) (remux.ApplyResult, error) {
			return remux.ApplyResult{}, &toolexec.ExitError{Binary: "ffmpeg", ExitCode: 1, Stderr: longStderr}
		},
		"e.MOV": func(remux.ApplyRequest) (remux.ApplyResult, error) {
			panic("boom")
		},
	}}
	observer := &recordingObserver{}
	ctrl := NewController(testOptions(), applier, nil).WithObserver(observer)

	report, err := ctrl.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := [][2]string{
		{"a.mp4", "Success"},
		{"b.mkv", "SkippedNoChapters"},
		{"c.mp4", "SkippedNoChapters"},
		{"d.avi", ""},
		{"e.MOV", "Failed: internal error: boom"},
	}
	lines := report.Lines()
	if len(lines) != len(want) {
		t.Fatalf("report lines = %v", lines)
	}
	for i, w := range want {
		if lines[i][0] != w[0] {
			t.Fatalf("line %d file = %q, want %q", i, lines[i][0], w[0])
		}
		if w[1] != "" && lines[i][1] != w[1] {
			t.Fatalf("line %d outcome = %q, want %q", i, lines[i][1], w[1])
		}
	}

	failed := report.Items[3]
	if failed.Outcome.Kind != OutcomeFailed || failed.ErrorKind != "process" {
		t.Fatalf("unexpected failed item %+v", failed)
	}
	if n := len([]rune(failed.Outcome.Reason)); n != ReasonLimit {
		t.Fatalf("reason length = %d runes, want %d", n, ReasonLimit)
	}
	if !strings.HasPrefix(failed.Outcome.String(), "Failed: header line | xxx") {
		t.Fatalf("unexpected reason %q", failed.Outcome.String())
	}

	if got := applier.called(); strings.Join(got, ",") != "a.mp4,d.avi,e.MOV" {
		t.Fatalf("applier called for %v", got)
	}
	// d.txt has no zero entry, so the formatter adds one.
	if first := applier.calls[1].Chapters[0]; first.Timecode != "00:00:00:00" || first.Title != chapters.DefaultIntroTitle {
		t.Fatalf("unexpected first chapter %+v", first)
	}
	if applier.calls[0].Mode != remux.ModeNew {
		t.Fatalf("default mode = %q", applier.calls[0].Mode)
	}
	if len(report.Items[2].Warnings) != 1 {
		t.Fatalf("expected one diagnostic for c.txt, got %v", report.Items[2].Warnings)
	}

	counts := report.Counts()
	if counts != (Counts{Total: 5, Succeeded: 1, Skipped: 2, Failed: 2}) {
		t.Fatalf("counts = %+v", counts)
	}
	if report.RunID == "" || report.FinishedAt.Before(report.StartedAt) {
		t.Fatalf("report metadata not set: %+v", report)
	}

	if len(observer.states) < 4 || observer.states[0] != StateScanning || observer.states[1] != StateStripping {
		t.Fatalf("states = %v", observer.states)
	}
	if last := observer.states[len(observer.states)-2:]; last[0] != StateReporting || last[1] != StateIdle {
		t.Fatalf("expected run to end with reporting then idle, got %v", observer.states)
	}
	if strings.Join(observer.done, ",") != "a.mp4,b.mkv,c.mp4,d.avi,e.MOV" {
		t.Fatalf("finished items = %v", observer.done)
	}
	if ctrl.State() != StateIdle {
		t.Fatalf("state after run = %v", ctrl.State())
	}
}

func TestMissingCompanionNeverInvokesTools(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "solo.mp4", "v")
	applier := &fakeApplier{}
	report, err := NewController(testOptions(), applier, nil).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(applier.called()) != 0 {
		t.Fatalf("applier should not run, got %v", applier.called())
	}
	if report.Items[0].Outcome.Kind != OutcomeSkippedNoChapters {
		t.Fatalf("outcome = %+v", report.Items[0].Outcome)
	}
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4", "v")
	writeFile(t, dir, "a.txt", "0:00 Start")

	entered := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once
	applier := &fakeApplier{behavior: map[string]func(remux.ApplyRequest) (remux.ApplyResult, error){
		"a.mp4": func(remux.ApplyRequest) (remux.ApplyResult, error) {
			once.Do(func() { close(entered) })
			<-unblock
			return remux.ApplyResult{}, nil
		},
	}}
	ctrl := NewController(testOptions(), applier, nil)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Run(context.Background(), dir)
		done <- err
	}()
	<-entered
	if _, err := ctrl.Run(context.Background(), dir); !errors.Is(err, runstate.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := ctrl.Run(context.Background(), dir); err != nil {
		t.Fatalf("run after completion: %v", err)
	}
}

func TestRunHonoursLockFile(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "batch.lock")
	held, err := runstate.AcquireFileLock(lockPath)
	if err != nil {
		t.Fatalf("AcquireFileLock: %v", err)
	}
	defer held.Release()

	opts := testOptions()
	opts.LockPath = lockPath
	_, err = NewController(opts, &fakeApplier{}, nil).Run(context.Background(), t.TempDir())
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestRunUnreadableFolder(t *testing.T) {
	_, err := NewController(testOptions(), &fakeApplier{}, nil).Run(context.Background(), filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, services.ErrAccess) {
		t.Fatalf("expected ErrAccess, got %v", err)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		writeFile(t, dir, name+".mp4", "v")
		writeFile(t, dir, name+".txt", "0:00 Start")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	applier := &fakeApplier{behavior: map[string]func(remux.ApplyRequest) (remux.ApplyResult, error){
		"a.mp4": func(remux.ApplyRequest) (remux.ApplyResult, error) {
			cancel()
			return remux.ApplyResult{}, nil
		},
	}}
	report, err := NewController(testOptions(), applier, nil).Run(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("expected 1 finished item, got %d", len(report.Items))
	}
}

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4", "v")
	writeFile(t, dir, "a.txt", "0:00 Start")
	writeFile(t, dir, "b.mp4", "v")

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	defer store.Close()

	opts := testOptions()
	opts.Mode = remux.ModeOverwrite
	report, err := NewController(opts, &fakeApplier{}, nil).WithRecorder(store).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.Finished() || run.Total != 2 || run.Succeeded != 1 || run.Skipped != 1 || run.Mode != "overwrite" {
		t.Fatalf("unexpected run %+v", run)
	}
	items, err := store.Items(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 2 || items[0].FileName != "a.mp4" || items[1].Outcome != string(OutcomeSkippedNoChapters) {
		t.Fatalf("unexpected items %+v", items)
	}
}

type fakeProber struct{ durationMS int64 }

func (p fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	seconds := float64(p.durationMS) / 1000
	return ffprobe.Result{Format: ffprobe.Format{Duration: strconv.FormatFloat(seconds, 'f', 3, 64)}}, nil
}

func TestDurationCheckWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mp4", "v")
	writeFile(t, dir, "a.txt", "0:00 Start\n0:30 Middle\n5:00 Too late")

	opts := testOptions()
	opts.CheckDuration = true
	report, err := NewController(opts, &fakeApplier{}, nil).WithProber(fakeProber{durationMS: 60_000}).Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	item := report.Items[0]
	if item.Outcome.Kind != OutcomeSuccess {
		t.Fatalf("duration warnings must not fail the item: %+v", item.Outcome)
	}
	if len(item.Warnings) != 1 || !strings.Contains(item.Warnings[0], "Too late") {
		t.Fatalf("warnings = %v", item.Warnings)
	}
}

func TestBeyondDuration(t *testing.T) {
	list, _ := chapters.Prepare("0:00 A\n1:00 B\n2:00 C", chapters.Options{})
	if got := BeyondDuration(list, 120_000); len(got) != 1 {
		t.Fatalf("BeyondDuration = %v", got)
	}
	if got := BeyondDuration(list, 500_000); len(got) != 0 {
		t.Fatalf("BeyondDuration = %v", got)
	}
}

func TestFailureReason(t *testing.T) {
	if FailureReason(nil) != "" {
		t.Fatal("nil error should have empty reason")
	}
	plain := errors.New(strings.Repeat("é", 150))
	if n := len([]rune(FailureReason(plain))); n != ReasonLimit {
		t.Fatalf("reason length = %d", n)
	}
	wrapped := services.Wrap(services.ErrExternalTool, "remux", "strip", "", &toolexec.ExitError{Stderr: "moov atom not found"})
	if got := FailureReason(wrapped); got != "moov atom not found" {
		t.Fatalf("FailureReason = %q", got)
	}
}
