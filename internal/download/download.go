// Package download fetches videos with yt-dlp into the download directory,
// naming them after the video's sanitized title.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chapterize/internal/logging"
	"chapterize/internal/services"
	"chapterize/internal/textutil"
	"chapterize/internal/toolexec"
)

// Format is the yt-dlp format selector: best video and audio merged, or the
// best single file when merging is impossible.
const Format = "bestvideo+bestaudio/best"

// MergeContainer is the container yt-dlp merges separate streams into.
const MergeContainer = "mp4"

// OutputExtensions are the extensions a finished download may carry.
var OutputExtensions = []string{".mp4", ".mkv", ".webm", ".flv", ".avi"}

// fallbackName is used when a title sanitizes to nothing.
const fallbackName = "video"

// Phase names reported with progress.
const (
	PhaseDownload = "download"
	PhaseMerge    = "merge"
)

// Progress is one parsed yt-dlp progress update.
type Progress struct {
	Phase   string
	Percent float64 // -1 when unknown
	Line    string
}

// Options configures a Downloader.
type Options struct {
	YtDlp   string
	Dir     string
	Timeout time.Duration
}

// Result describes a finished download.
type Result struct {
	URL   string
	Title string
	Path  string
}

// Downloader runs yt-dlp.
type Downloader struct {
	opts   Options
	logger *slog.Logger
	run    toolexec.Runner
}

// New constructs a Downloader.
func New(opts Options, logger *slog.Logger) *Downloader {
	if strings.TrimSpace(opts.YtDlp) == "" {
		opts.YtDlp = "yt-dlp"
	}
	return &Downloader{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "download"),
		run:    toolexec.Exec,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (d *Downloader) WithCommandRunner(r toolexec.Runner) *Downloader {
	if d != nil && r != nil {
		d.run = r
	}
	return d
}

// Title asks yt-dlp for the video title.
func (d *Downloader) Title(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "download", "title", "url is required", nil)
	}
	result, err := d.run.Run(ctx, toolexec.Command{
		Binary:  d.opts.YtDlp,
		Args:    []string{"--get-title", "--no-playlist", url},
		Timeout: d.opts.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("get title: %w", err)
	}
	for line := range strings.SplitSeq(result.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "download", "title", "yt-dlp returned no title", nil)
}

// Download fetches url into the configured directory. onProgress, when set,
// receives every parsed progress line.
func (d *Downloader) Download(ctx context.Context, url string, onProgress func(Progress)) (Result, error) {
	title, err := d.Title(ctx, url)
	if err != nil {
		return Result{}, err
	}
	name := FileName(title)
	dir := d.opts.Dir
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrAccess, "download", "prepare", "create download directory", err)
	}

	logger := logging.WithContext(ctx, d.logger)
	logger.Info("download started",
		logging.String(logging.FieldEventType, "download_started"),
		logging.String("url", url),
		logging.String("title", title),
		logging.String("dir", dir),
	)

	sampler := logging.NewProgressSampler(10)
	observe := func(stream toolexec.Stream, line string) {
		progress, ok := ParseProgress(line)
		if !ok {
			return
		}
		if sampler.ShouldLog(progress.Percent, progress.Phase) {
			logger.Info("download progress",
				logging.String("phase", progress.Phase),
				logging.Float64("percent", progress.Percent),
			)
		}
		if onProgress != nil {
			onProgress(progress)
		}
	}

	_, err = d.run.Run(ctx, toolexec.Command{
		Binary: d.opts.YtDlp,
		Args: []string{
			"--no-playlist", "--newline",
			"-f", Format,
			"--merge-output-format", MergeContainer,
			"-o", filepath.Join(dir, name+".%(ext)s"),
			url,
		},
		Timeout: d.opts.Timeout,
		OnLine:  observe,
	})
	if err != nil {
		return Result{}, fmt.Errorf("download: %w", err)
	}

	path, err := findOutput(dir, name)
	if err != nil {
		return Result{}, err
	}
	logger.Info("download complete",
		logging.String(logging.FieldEventType, "download_complete"),
		logging.String("path", path),
	)
	return Result{URL: url, Title: title, Path: path}, nil
}

// FileName turns a video title into the base name used for the download.
func FileName(title string) string {
	if name := textutil.SanitizeFileName(title); name != "" {
		return name
	}
	return fallbackName
}

func findOutput(dir, name string) (string, error) {
	for _, ext := range OutputExtensions {
		candidate := filepath.Join(dir, name+ext)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrAccess, "download", "locate output", candidate, err)
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "download", "locate output",
		fmt.Sprintf("yt-dlp finished but %s.{%s} was not created", name, strings.Join(trimDots(OutputExtensions), ",")), nil)
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = strings.TrimPrefix(ext, ".")
	}
	return out
}

var percentPattern = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// ParseProgress recognises yt-dlp download and merge lines.
func ParseProgress(line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "[Merger]"):
		return Progress{Phase: PhaseMerge, Percent: -1, Line: line}, true
	case strings.HasPrefix(line, "[download]"):
		if m := percentPattern.FindStringSubmatch(line); m != nil {
			percent, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return Progress{Phase: PhaseDownload, Percent: percent, Line: line}, true
			}
		}
		return Progress{Phase: PhaseDownload, Percent: -1, Line: line}, true
	}
	return Progress{}, false
}
