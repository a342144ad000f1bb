package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPattern matches per-run batch log files for retention pruning.
const RunLogPattern = "batch-*.log"

// RunLog is a per-run JSON log file teed off a base logger.
type RunLog struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// OpenRunLog creates <dir>/batch-<timestamp>.log and returns a logger that
// writes to base and to the file. An empty dir returns base unchanged.
func OpenRunLog(base *slog.Logger, dir, level string, now time.Time) (*RunLog, error) {
	if dir == "" {
		return &RunLog{Logger: base}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, "batch-"+now.UTC().Format("20060102T150405Z")+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	handler := newJSONHandler(file, parseLevel(level), false)
	return &RunLog{Logger: TeeLogger(base, handler), Path: path, file: file}, nil
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}
