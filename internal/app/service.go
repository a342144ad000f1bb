package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"chapterize/internal/batch"
	"chapterize/internal/chapters"
	"chapterize/internal/config"
	"chapterize/internal/deps"
	"chapterize/internal/download"
	"chapterize/internal/history"
	"chapterize/internal/logging"
	"chapterize/internal/media/ffprobe"
	"chapterize/internal/remux"
	"chapterize/internal/runstate"
	"chapterize/internal/services"
	"chapterize/internal/toolexec"
)

// Service owns the resolved tools and per-operation guards.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger
	tools  deps.Toolset
	runner toolexec.Runner
	guards map[Operation]*runstate.Guard
}

// New resolves tool locations once and returns a Service.
func New(cfg *config.Config, logger *slog.Logger) *Service {
	return NewWithTools(cfg, logger, deps.Resolve(cfg))
}

// NewWithTools builds a Service around an already resolved toolset.
func NewWithTools(cfg *config.Config, logger *slog.Logger, tools deps.Toolset) *Service {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	guards := make(map[Operation]*runstate.Guard, 4)
	for _, op := range []Operation{OpBatch, OpApply, OpDownload, OpProbe} {
		guards[op] = runstate.NewGuard(string(op))
	}
	return &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "app"),
		tools:  tools,
		runner: toolexec.Exec,
		guards: guards,
	}
}

// WithCommandRunner routes every external tool call through r.
func (s *Service) WithCommandRunner(r toolexec.Runner) *Service {
	if r != nil {
		s.runner = r
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Tools returns the resolved tool locations.
func (s *Service) Tools() deps.Toolset { return s.tools }

// Dependencies probes every tool and reports its status.
func (s *Service) Dependencies(ctx context.Context) []deps.Status {
	return deps.CheckBinaries(ctx, s.runner, s.cfg.Timeouts.ToolProbeTimeout(), deps.Requirements(s.tools))
}

func (s *Service) require(loc deps.ExecutableLocation, stage string) error {
	if loc.Found {
		return nil
	}
	return services.Wrap(services.ErrToolMissing, stage, "resolve",
		fmt.Sprintf("%s not found (set tools.%s or install it on PATH)", loc.Command(), strings.ReplaceAll(loc.Tool, "-", "_")), nil)
}

func (s *Service) remuxer(logger *slog.Logger) *remux.Remuxer {
	return remux.New(remux.Options{
		FFmpeg:         s.tools.FFmpeg.Command(),
		Suffix:         s.cfg.Remux.Suffix,
		BackupOriginal: s.cfg.Remux.BackupOriginal,
		Timeout:        s.cfg.Timeouts.RemuxTimeout(),
	}, logger).WithCommandRunner(s.runner)
}

func (s *Service) prober() *ffprobe.Prober {
	return ffprobe.New(s.tools.FFprobe.Command(), s.cfg.Timeouts.MediaProbeTimeout()).WithRunner(s.runner)
}

// durationProber returns a prober when the duration check is on and ffprobe
// was found; the check is skipped otherwise.
func (s *Service) durationProber() *ffprobe.Prober {
	if !s.cfg.Chapters.CheckDuration || !s.tools.FFprobe.Found {
		return nil
	}
	return s.prober()
}

// BatchRequest configures one batch run.
type BatchRequest struct {
	Folder   string
	Mode     remux.Mode // empty uses batch.mode from config
	Observer batch.Observer
}

// StartBatch runs a batch in the background. The run writes a per-run log
// next to the main log and, when enabled, a history record.
func (s *Service) StartBatch(ctx context.Context, req BatchRequest) (*Task[batch.Report], error) {
	if err := s.require(s.tools.FFmpeg, "batch"); err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		parsed, err := remux.ParseMode(s.cfg.Batch.Mode)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "batch", "mode", "", err)
		}
		mode = parsed
	}
	return start(ctx, s.guards[OpBatch], OpBatch, func(ctx context.Context) (batch.Report, error) {
		runLog, err := logging.OpenRunLog(s.logger, s.cfg.Paths.LogDir, s.cfg.Logging.Level, time.Now())
		if err != nil {
			s.logger.Warn("per-run log unavailable", logging.Error(err))
			runLog = &logging.RunLog{Logger: s.logger}
		}
		defer runLog.Close()
		logging.PruneOldLogs(s.logger, s.cfg.Paths.LogDir, logging.RunLogPattern, s.cfg.Logging.RetentionDays, runLog.Path)

		opts := batch.Options{
			Mode:          mode,
			Extensions:    s.cfg.Batch.Extensions,
			Chapters:      s.cfg.ChapterOptions(),
			RetryDelay:    s.cfg.AccessRetryDelay(),
			CheckDuration: s.cfg.Chapters.CheckDuration,
			LockPath:      s.cfg.LockPath(),
		}
		ctrl := batch.NewController(opts, s.remuxer(runLog.Logger), runLog.Logger).WithObserver(req.Observer)
		if p := s.durationProber(); p != nil {
			ctrl.WithProber(p)
		}
		if s.cfg.History.Enabled {
			store, err := history.Open(s.cfg.HistoryPath())
			if err != nil {
				logging.WarnWithContext(runLog.Logger, "run history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run will not appear in history"),
				)
			} else {
				defer store.Close()
				ctrl.WithRecorder(store)
			}
		}
		return ctrl.Run(ctx, req.Folder)
	})
}

// ApplyRequest configures a single-video chapter application.
type ApplyRequest struct {
	VideoPath string
	// ChaptersPath overrides the companion "<base>.txt".
	ChaptersPath string
	// ChapterText, when set, is used instead of reading any file.
	ChapterText string
	Mode        remux.Mode // empty uses remux.mode from config
}

// ApplyOutcome reports a single application.
type ApplyOutcome struct {
	Result      remux.ApplyResult
	Chapters    chapters.List
	Diagnostics []chapters.Diagnostic
	Warnings    []string
}

// StartApply applies chapters to one video in the background.
func (s *Service) StartApply(ctx context.Context, req ApplyRequest) (*Task[ApplyOutcome], error) {
	if err := s.require(s.tools.FFmpeg, "apply"); err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		parsed, err := remux.ParseMode(s.cfg.Remux.Mode)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "apply", "mode", "", err)
		}
		mode = parsed
	}
	return start(ctx, s.guards[OpApply], OpApply, func(ctx context.Context) (ApplyOutcome, error) {
		return s.apply(ctx, req, mode)
	})
}

func (s *Service) apply(ctx context.Context, req ApplyRequest, mode remux.Mode) (ApplyOutcome, error) {
	text := req.ChapterText
	if text == "" {
		path := req.ChaptersPath
		if path == "" {
			path = chapters.CompanionPath(req.VideoPath)
		}
		var err error
		text, err = chapters.ReadCompanion(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return ApplyOutcome{}, services.Wrap(services.ErrValidation, "apply", "read chapters", "no chapter file at "+path, err)
			}
			return ApplyOutcome{}, services.Wrap(services.ErrAccess, "apply", "read chapters", path, err)
		}
	}

	opts := s.cfg.ChapterOptions()
	parsed := chapters.Parse(text, opts.Parse)
	if len(parsed.Entries) == 0 {
		return ApplyOutcome{Diagnostics: parsed.Diagnostics},
			services.Wrap(services.ErrValidation, "apply", "parse", "no chapters found in chapter text", nil)
	}
	outcome := ApplyOutcome{
		Chapters:    chapters.Format(parsed.Entries, opts.Format),
		Diagnostics: parsed.Diagnostics,
	}
	if positions := chapters.OutOfOrder(outcome.Chapters); len(positions) > 0 {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("chapters out of order at positions %v", positions))
	}
	if p := s.durationProber(); p != nil {
		if probe, err := p.Inspect(ctx, req.VideoPath); err == nil {
			if durationMS, ok := probe.DurationMS(); ok {
				outcome.Warnings = append(outcome.Warnings, batch.BeyondDuration(outcome.Chapters, durationMS)...)
			}
		} else {
			s.logger.Warn("duration check skipped", logging.Error(err))
		}
	}

	result, err := s.remuxer(s.logger).Apply(ctx, remux.ApplyRequest{
		VideoPath: req.VideoPath,
		Chapters:  outcome.Chapters,
		Mode:      mode,
	})
	if err != nil {
		return outcome, err
	}
	outcome.Result = result
	return outcome, nil
}

// StartDownload fetches a video with yt-dlp in the background.
func (s *Service) StartDownload(ctx context.Context, url, dir string, onProgress func(download.Progress)) (*Task[download.Result], error) {
	if err := s.require(s.tools.YtDlp, "download"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) == "" {
		dir = s.cfg.Paths.DownloadDir
	}
	d := download.New(download.Options{
		YtDlp:   s.tools.YtDlp.Command(),
		Dir:     dir,
		Timeout: s.cfg.Timeouts.DownloadTimeout(),
	}, s.logger).WithCommandRunner(s.runner)
	return start(ctx, s.guards[OpDownload], OpDownload, func(ctx context.Context) (download.Result, error) {
		return d.Download(ctx, url, onProgress)
	})
}

// StartProbe inspects a video with ffprobe in the background.
func (s *Service) StartProbe(ctx context.Context, path string) (*Task[ffprobe.Result], error) {
	if err := s.require(s.tools.FFprobe, "probe"); err != nil {
		return nil, err
	}
	p := s.prober()
	return start(ctx, s.guards[OpProbe], OpProbe, func(ctx context.Context) (ffprobe.Result, error) {
		return p.Inspect(ctx, path)
	})
}
