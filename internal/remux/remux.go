package remux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"chapterize/internal/chapters"
	"chapterize/internal/ffmetadata"
	"chapterize/internal/fileutil"
	"chapterize/internal/logging"
	"chapterize/internal/services"
	"chapterize/internal/toolexec"
)

// Mode selects where Apply puts its result.
type Mode string

const (
	// ModeNew writes "<base><suffix><ext>" and leaves the original untouched.
	ModeNew Mode = "new"
	// ModeOverwrite replaces the original file.
	ModeOverwrite Mode = "overwrite"
)

// DefaultSuffix is appended to the base name in ModeNew.
const DefaultSuffix = chapters.GeneratedSuffix

// ParseMode maps a configuration value to a Mode. Empty means ModeNew.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeNew:
		return ModeNew, nil
	case ModeOverwrite:
		return ModeOverwrite, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want new or overwrite)", value)
	}
}

// Step names the ffmpeg pass Apply is about to run.
type Step string

const (
	StepStrip  Step = "stripping"
	StepInject Step = "injecting"
)

// Options configures a Remuxer.
type Options struct {
	FFmpeg         string
	Suffix         string
	BackupOriginal bool
	// Timeout bounds each ffmpeg pass. Zero means no bound.
	Timeout time.Duration
}

// ApplyRequest describes one chapter application.
type ApplyRequest struct {
	VideoPath string
	Chapters  chapters.List
	Mode      Mode
	// OnStep, when set, is called before each ffmpeg pass.
	OnStep func(Step)
}

// ApplyResult reports where the chaptered video ended up.
type ApplyResult struct {
	OutputPath string
	BackupPath string
	Chapters   int
}

// Remuxer runs the strip and inject passes.
type Remuxer struct {
	opts   Options
	logger *slog.Logger
	run    toolexec.Runner
	newID  func() string
}

// New constructs a Remuxer.
func New(opts Options, logger *slog.Logger) *Remuxer {
	if strings.TrimSpace(opts.FFmpeg) == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(opts.Suffix) == "" {
		opts.Suffix = DefaultSuffix
	}
	return &Remuxer{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "remux"),
		run:    toolexec.Exec,
		newID:  uuid.NewString,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (r *Remuxer) WithCommandRunner(runner toolexec.Runner) *Remuxer {
	if r != nil && runner != nil {
		r.run = runner
	}
	return r
}

// StripArgs builds the ffmpeg arguments that copy every stream of src into
// dst without chapters or global metadata.
func StripArgs(src, dst string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", src,
		"-map", "0",
		"-map_chapters", "-1",
		"-map_metadata", "-1",
		"-c", "copy",
		dst,
	}
}

// InjectArgs builds the ffmpeg arguments that take streams from stripped and
// metadata plus chapters from the ffmetadata file.
func InjectArgs(stripped, metadata, dst string) []string {
	return []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", stripped,
		"-i", metadata,
		"-map_metadata", "1",
		"-map_chapters", "1",
		"-map", "0",
		"-c", "copy",
		"-movflags", "use_metadata_tags",
		dst,
	}
}

// Strip removes existing chapters and metadata from src, writing dst.
func (r *Remuxer) Strip(ctx context.Context, src, dst string) error {
	return r.ffmpeg(ctx, "strip", StripArgs(src, dst), dst)
}

// Inject maps the chapters in metadata onto stripped, writing dst.
func (r *Remuxer) Inject(ctx context.Context, stripped, metadata, dst string) error {
	return r.ffmpeg(ctx, "inject", InjectArgs(stripped, metadata, dst), dst)
}

func (r *Remuxer) ffmpeg(ctx context.Context, operation string, args []string, output string) error {
	if r == nil {
		return services.Wrap(services.ErrUnexpected, "remux", operation, "remuxer not initialized", nil)
	}
	start := time.Now()
	result, err := r.run.Run(ctx, toolexec.Command{
		Binary:  r.opts.FFmpeg,
		Args:    args,
		Timeout: r.opts.Timeout,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if _, statErr := os.Stat(output); statErr != nil {
		return services.Wrap(services.ErrExternalTool, "remux", operation, "ffmpeg did not produce output", statErr)
	}
	logging.WithContext(ctx, r.logger).Debug("ffmpeg pass complete",
		logging.String("operation", operation),
		logging.String("output", output),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("stderr_bytes", len(result.Stderr)),
	)
	return nil
}

// OutputPath returns the final destination of Apply for a video.
func OutputPath(videoPath string, mode Mode, suffix string) string {
	if mode == ModeOverwrite {
		return videoPath
	}
	if strings.TrimSpace(suffix) == "" {
		suffix = DefaultSuffix
	}
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + suffix + ext
}

// scratch holds the per-call intermediate files.
type scratch struct {
	stripped string
	metadata string
	output   string
}

func (r *Remuxer) scratchFiles(videoPath string) scratch {
	dir := filepath.Dir(videoPath)
	ext := filepath.Ext(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), ext)
	prefix := filepath.Join(dir, "."+stem+"."+r.newID())
	return scratch{
		stripped: prefix + ".stripped" + ext,
		metadata: prefix + ".ffmeta.txt",
		output:   prefix + ".out" + ext,
	}
}

// Apply strips the video, writes the chapter metadata file, injects it and
// moves the result into place. Scratch files are removed on every path, and
// the destination is only touched after ffmpeg succeeded.
func (r *Remuxer) Apply(ctx context.Context, req ApplyRequest) (ApplyResult, error) {
	if r == nil {
		return ApplyResult{}, services.Wrap(services.ErrUnexpected, "remux", "apply", "remuxer not initialized", nil)
	}
	if strings.TrimSpace(req.VideoPath) == "" {
		return ApplyResult{}, services.Wrap(services.ErrValidation, "remux", "apply", "video path is required", nil)
	}
	if len(req.Chapters) == 0 {
		return ApplyResult{}, services.Wrap(services.ErrValidation, "remux", "apply", "no chapters to apply", nil)
	}
	info, err := os.Stat(req.VideoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ApplyResult{}, services.Wrap(services.ErrValidation, "remux", "apply", "video not found", err)
		}
		return ApplyResult{}, services.Wrap(services.ErrAccess, "remux", "apply", "stat video", err)
	}
	if info.IsDir() {
		return ApplyResult{}, services.Wrap(services.ErrValidation, "remux", "apply", "video path is a directory", nil)
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeNew
	}

	files := r.scratchFiles(req.VideoPath)
	defer func() {
		if cleanupErr := fileutil.RemoveAll(files.stripped, files.metadata, files.output); cleanupErr != nil {
			logging.WarnWithContext(r.logger, "failed to remove scratch files", "scratch_cleanup_failed",
				logging.Error(cleanupErr),
				logging.String("video", req.VideoPath),
				logging.String(logging.FieldErrorHint, "delete the hidden scratch files next to the video"),
			)
		}
	}()

	notify := func(step Step) {
		if req.OnStep != nil {
			req.OnStep(step)
		}
	}

	notify(StepStrip)
	if err := r.Strip(ctx, req.VideoPath, files.stripped); err != nil {
		return ApplyResult{}, err
	}
	if err := ffmetadata.WriteFile(files.metadata, req.Chapters); err != nil {
		return ApplyResult{}, services.Wrap(services.ErrAccess, "remux", "apply", "write chapter metadata", err)
	}
	notify(StepInject)
	if err := r.Inject(ctx, files.stripped, files.metadata, files.output); err != nil {
		return ApplyResult{}, err
	}

	target := OutputPath(req.VideoPath, mode, r.opts.Suffix)
	result := ApplyResult{OutputPath: target, Chapters: len(req.Chapters)}
	if mode == ModeOverwrite && r.opts.BackupOriginal {
		backup := fileutil.BackupPath(req.VideoPath)
		if err := fileutil.CopyFileVerified(req.VideoPath, backup); err != nil {
			return ApplyResult{}, services.Wrap(services.ErrAccess, "remux", "backup", "copy original", err)
		}
		result.BackupPath = backup
	}
	if err := os.Rename(files.output, target); err != nil {
		return ApplyResult{}, services.Wrap(services.ErrAccess, "remux", "apply", "move output into place", err)
	}

	logging.WithContext(ctx, r.logger).Info("chapters applied",
		logging.String(logging.FieldEventType, "chapters_applied"),
		logging.String("video", req.VideoPath),
		logging.String("output", target),
		logging.Int("chapters", len(req.Chapters)),
		logging.String("mode", string(mode)),
	)
	return result, nil
}
