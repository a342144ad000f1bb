package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"chapterize/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string // "console" (default) or "json"
	// Output is "stderr", "stdout", or a file path. Empty means stderr.
	Output string
}

// New constructs a slog logger. Debug level adds source locations.
func New(opts Options) (*slog.Logger, error) {
	handler, err := newHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func newHandler(opts Options) (slog.Handler, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console", "json":
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	w, err := openOutput(opts.Output)
	if err != nil {
		return nil, err
	}
	level := parseLevel(opts.Level)
	addSource := level <= slog.LevelDebug
	if format == "json" {
		return newJSONHandler(w, level, addSource), nil
	}
	return newConsoleHandler(w, level, addSource), nil
}

// NewFromConfig creates the CLI logger: the configured format on stderr, plus
// a JSON copy appended to <log_dir>/chapterize.log when a log directory is set.
// stdout stays free for command output.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}

	console, err := newHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	logPath := cfg.LogPath()
	if logPath == "" {
		return slog.New(console), nil
	}
	file, err := openOutput(logPath)
	if err != nil {
		return nil, err
	}
	return slog.New(newFanoutHandler(console, newJSONHandler(file, parseLevel(cfg.Logging.Level), false))), nil
}

// parseLevel maps a config level name to a slog level. Unknown names are info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(target string) (io.Writer, error) {
	switch target = strings.TrimSpace(target); target {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	if dir := filepath.Dir(target); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return file, nil
}
