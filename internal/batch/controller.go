package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"chapterize/internal/chapters"
	"chapterize/internal/config"
	"chapterize/internal/fsaccess"
	"chapterize/internal/history"
	"chapterize/internal/logging"
	"chapterize/internal/media/ffprobe"
	"chapterize/internal/remux"
	"chapterize/internal/runstate"
	"chapterize/internal/services"
	"chapterize/internal/textutil"
	"chapterize/internal/toolexec"
)

// Applier writes chapters into a video.
type Applier interface {
	Apply(ctx context.Context, req remux.ApplyRequest) (remux.ApplyResult, error)
}

// Prober reads media information used for the optional duration check.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Recorder persists runs. *history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, run *history.Run) error
	AddItem(ctx context.Context, item history.Item) error
	FinishRun(ctx context.Context, run history.Run) error
}

// Options configures a Controller.
type Options struct {
	Mode       remux.Mode
	Extensions []string
	Chapters   chapters.Options
	// RetryDelay is the base wait between folder listing attempts.
	RetryDelay time.Duration
	// CheckDuration warns about chapters that start after the media ends.
	CheckDuration bool
	// LockPath, when set, is held for the whole run so a second process
	// cannot batch at the same time.
	LockPath string
}

// Controller runs batches. One Controller runs at most one batch at a time.
type Controller struct {
	opts     Options
	applier  Applier
	prober   Prober
	recorder Recorder
	observer Observer
	logger   *slog.Logger
	guard    *runstate.Guard

	mu    sync.Mutex
	state State
}

// NewController constructs a controller around an Applier.
func NewController(opts Options, applier Applier, logger *slog.Logger) *Controller {
	if opts.Mode == "" {
		opts.Mode = remux.ModeNew
	}
	return &Controller{
		opts:     opts,
		applier:  applier,
		observer: nopObserver{},
		logger:   logging.NewComponentLogger(logger, "batch"),
		guard:    runstate.NewGuard("batch"),
		state:    StateIdle,
	}
}

// WithProber enables media probing for the duration check.
func (c *Controller) WithProber(p Prober) *Controller {
	c.prober = p
	return c
}

// WithRecorder persists every run to r.
func (c *Controller) WithRecorder(r Recorder) *Controller {
	c.recorder = r
	return c
}

// WithObserver receives state changes and item outcomes.
func (c *Controller) WithObserver(o Observer) *Controller {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
	return c
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(state State, index, total int, file string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.observer.StateChanged(state, index, total, file)
}

// Run processes every video in folder and returns the report. A second call
// while a run is active fails with runstate.ErrBusy. Errors are returned only
// when the folder cannot be scanned or the context is cancelled; per-video
// problems are recorded as outcomes. On cancellation the report holds the
// videos finished so far.
func (c *Controller) Run(ctx context.Context, folder string) (Report, error) {
	if c.applier == nil {
		return Report{}, services.Wrap(services.ErrUnexpected, "batch", "run", "no applier configured", nil)
	}
	release, err := c.guard.TryStart()
	if err != nil {
		return Report{}, err
	}
	defer release()

	if c.opts.LockPath != "" {
		lock, err := runstate.AcquireFileLock(c.opts.LockPath)
		if err != nil {
			return Report{}, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				c.logger.Warn("failed to release batch lock", logging.Error(err))
			}
		}()
	}
	defer c.setState(StateIdle, -1, 0, "")

	report := Report{
		RunID:     history.NewRunID(),
		Folder:    folder,
		Mode:      string(c.opts.Mode),
		StartedAt: time.Now().UTC(),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, c.logger)

	c.setState(StateScanning, -1, 0, "")
	videos, err := c.scan(ctx, folder)
	if err != nil {
		logging.ErrorWithContext(logger, "batch scan failed", "batch_scan_failed",
			logging.String("folder", folder),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the folder path and permissions"),
		)
		return report, err
	}
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.String("folder", folder),
		logging.Int("videos", len(videos)),
		logging.String("mode", report.Mode),
	)

	recorder := c.beginRecording(ctx, logger, report)

	var runErr error
	for index, video := range videos {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		itemCtx := services.WithItem(ctx, filepath.Base(video))
		item := c.processItem(itemCtx, index, len(videos), video)
		report.Items = append(report.Items, item)

		c.setState(StateRecording, index, len(videos), item.FileName())
		if recorder != nil {
			if err := recorder.AddItem(ctx, historyItem(report.RunID, index, item)); err != nil {
				logging.WarnWithContext(logger, "failed to record batch item", "history_write_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "item missing from run history"),
				)
			}
		}
		c.observer.ItemFinished(index, len(videos), item)
	}

	c.setState(StateReporting, -1, len(videos), "")
	report.FinishedAt = time.Now().UTC()
	counts := report.Counts()
	if recorder != nil {
		run := history.Run{
			ID:         report.RunID,
			FinishedAt: report.FinishedAt,
			Total:      counts.Total,
			Succeeded:  counts.Succeeded,
			Skipped:    counts.Skipped,
			Failed:     counts.Failed,
		}
		if runErr != nil {
			run.ErrorMessage = runErr.Error()
		}
		// The run context may be cancelled; the summary row is still written.
		if err := recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
			logging.WarnWithContext(logger, "failed to finish run history", "history_write_failed", logging.Error(err))
		}
	}
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("total", counts.Total),
		logging.Int("succeeded", counts.Succeeded),
		logging.Int("skipped", counts.Skipped),
		logging.Int("failed", counts.Failed),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, runErr
}

func (c *Controller) beginRecording(ctx context.Context, logger *slog.Logger, report Report) Recorder {
	if c.recorder == nil {
		return nil
	}
	run := &history.Run{
		ID:        report.RunID,
		Folder:    report.Folder,
		Mode:      report.Mode,
		StartedAt: report.StartedAt,
	}
	if err := c.recorder.BeginRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
		)
		return nil
	}
	return c.recorder
}

// scan lists folder and returns the sorted video paths it contains.
func (c *Controller) scan(ctx context.Context, folder string) ([]string, error) {
	videos, err := ListVideos(ctx, folder, c.opts.Extensions, fsaccess.Options{BaseDelay: c.opts.RetryDelay, Logger: c.logger})
	if err != nil {
		return nil, err
	}
	if err := fsaccess.CheckDirectory(folder, true); err != nil {
		return nil, err
	}
	return videos, nil
}

// ListVideos lists folder with access retries and returns the sorted paths of
// the videos directly inside it. Empty extensions use the default set.
func ListVideos(ctx context.Context, folder string, extensions []string, access fsaccess.Options) ([]string, error) {
	entries, err := fsaccess.ListDir(ctx, folder, access)
	if err != nil {
		return nil, err
	}
	return filterVideos(folder, entries, extensions), nil
}

// processItem produces the outcome for one video. Panics inside the item
// become failures so the batch keeps going.
func (c *Controller) processItem(ctx context.Context, index, total int, video string) (item Item) {
	item = Item{VideoPath: video}
	logger := logging.WithContext(ctx, c.logger)
	defer func() {
		if recovered := recover(); recovered != nil {
			item.Outcome = Outcome{Kind: OutcomeFailed, Reason: textutil.Clip(fmt.Sprintf("internal error: %v", recovered), ReasonLimit)}
			item.ErrorKind = "unexpected"
			logging.ErrorWithContext(logger, "batch item panicked", "batch_item_panic",
				logging.Any("panic", recovered),
			)
		}
	}()

	companion := chapters.CompanionPath(video)
	text, err := chapters.ReadCompanion(companion)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			item.Outcome = Outcome{Kind: OutcomeSkippedNoChapters}
			logger.Info("no companion chapter file", logging.String("companion", companion))
			return item
		}
		return c.fail(logger, item, services.Wrap(services.ErrAccess, "batch", "read companion", companion, err))
	}
	item.CompanionPath = companion

	parsed := chapters.Parse(text, c.opts.Chapters.Parse)
	for _, diag := range parsed.Diagnostics {
		item.Warnings = append(item.Warnings, diag.String())
		logger.Warn("chapter line ignored",
			logging.String(logging.FieldEventType, "chapter_line_ignored"),
			logging.Int("line", diag.Line),
			logging.String("text", diag.Text),
			logging.String("reason", diag.Reason),
		)
	}
	if len(parsed.Entries) == 0 {
		item.Outcome = Outcome{Kind: OutcomeSkippedNoChapters}
		logger.Info("companion has no usable chapters", logging.String("companion", companion))
		return item
	}
	list := chapters.Format(parsed.Entries, c.opts.Chapters.Format)
	item.Chapters = len(list)
	if positions := chapters.OutOfOrder(list); len(positions) > 0 {
		item.Warnings = append(item.Warnings, fmt.Sprintf("chapters out of order at positions %v", positions))
	}
	item.Warnings = append(item.Warnings, c.durationWarnings(ctx, logger, video, list)...)

	result, err := c.applier.Apply(ctx, remux.ApplyRequest{
		VideoPath: video,
		Chapters:  list,
		Mode:      c.opts.Mode,
		OnStep: func(step remux.Step) {
			state := StateStripping
			if step == remux.StepInject {
				state = StateInjecting
			}
			c.setState(state, index, total, filepath.Base(video))
		},
	})
	if err != nil {
		return c.fail(logger, item, err)
	}
	item.OutputPath = result.OutputPath
	item.Outcome = Outcome{Kind: OutcomeSuccess}
	return item
}

func (c *Controller) fail(logger *slog.Logger, item Item, err error) Item {
	item.Outcome = Outcome{Kind: OutcomeFailed, Reason: FailureReason(err)}
	item.ErrorKind = services.Kind(err)
	logging.WarnWithContext(logger, "batch item failed", "batch_item_failed",
		logging.Error(err),
		logging.String("error_kind", item.ErrorKind),
		logging.String(logging.FieldImpact, "video left unchanged"),
	)
	return item
}

func (c *Controller) durationWarnings(ctx context.Context, logger *slog.Logger, video string, list chapters.List) []string {
	if !c.opts.CheckDuration || c.prober == nil {
		return nil
	}
	probe, err := c.prober.Inspect(ctx, video)
	if err != nil {
		logging.WarnWithContext(logger, "duration check skipped", "duration_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "chapters applied without a duration check"),
		)
		return nil
	}
	durationMS, ok := probe.DurationMS()
	if !ok {
		return nil
	}
	return BeyondDuration(list, durationMS)
}

// BeyondDuration describes chapters that start at or after durationMS.
func BeyondDuration(list chapters.List, durationMS int64) []string {
	var warnings []string
	for _, entry := range list {
		if entry.StartMS > 0 && entry.StartMS >= durationMS {
			warnings = append(warnings, fmt.Sprintf("chapter %q at %s starts after the video ends", entry.Title, entry.Timecode))
		}
	}
	return warnings
}

// FailureReason turns an error into the short reason shown in reports. Tool
// failures use the tool's own diagnostic output.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	reason := err.Error()
	var exitErr *toolexec.ExitError
	if errors.As(err, &exitErr) {
		reason = exitErr.Diagnostic()
	}
	return textutil.Clip(reason, ReasonLimit)
}

func historyItem(runID string, index int, item Item) history.Item {
	return history.Item{
		RunID:      runID,
		Position:   index,
		FileName:   item.FileName(),
		Outcome:    string(item.Outcome.Kind),
		Reason:     item.Outcome.Reason,
		ErrorKind:  item.ErrorKind,
		OutputPath: item.OutputPath,
		Chapters:   item.Chapters,
	}
}

// filterVideos keeps visible regular files with a video extension, sorted by
// name. Hidden files include in-flight remux scratch files.
func filterVideos(folder string, entries []os.DirEntry, extensions []string) []string {
	if len(extensions) == 0 {
		extensions = config.DefaultVideoExtensions
	}
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	var videos []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		videos = append(videos, filepath.Join(folder, entry.Name()))
	}
	slices.Sort(videos)
	return videos
}
