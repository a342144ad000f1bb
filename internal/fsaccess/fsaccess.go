// Package fsaccess lists folders that may be briefly unreachable, such as
// network shares that are still mounting or removable drives waking up.
package fsaccess

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chapterize/internal/logging"
	"chapterize/internal/services"
)

// MaxAttempts is the number of listing attempts before giving up.
const MaxAttempts = 3

// DefaultBaseDelay is the wait after the first failed attempt. Later waits
// grow linearly: base, 2*base, ...
const DefaultBaseDelay = 2 * time.Second

// Options tunes ListDir.
type Options struct {
	// BaseDelay overrides DefaultBaseDelay. Negative values disable waiting.
	BaseDelay time.Duration
	Logger    *slog.Logger
}

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ListDir reads the entries of path, retrying transient failures up to
// MaxAttempts times. A path that exists but is not a directory fails
// immediately. The final error is tagged with services.ErrAccess.
func ListDir(ctx context.Context, path string, opts Options) ([]os.DirEntry, error) {
	base := opts.BaseDelay
	if base == 0 {
		base = DefaultBaseDelay
	}
	logger := logging.NewComponentLogger(opts.Logger, "fsaccess")

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(path)
		if err == nil {
			if attempt > 1 {
				logger.Info("folder became readable",
					logging.String("path", path),
					logging.Int("attempt", attempt),
				)
			}
			return entries, nil
		}
		lastErr = err
		if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
			return nil, services.Wrap(services.ErrAccess, "scan", "list folder", fmt.Sprintf("%s is not a directory", path), err)
		}
		if attempt == MaxAttempts {
			break
		}
		delay := base * time.Duration(attempt)
		logging.WarnWithContext(logger, "folder not readable, retrying", "folder_access_retry",
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Duration("delay", max(delay, 0)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the drive or share is mounted"),
			logging.String(logging.FieldImpact, "batch waits before retrying"),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, services.Wrap(services.ErrAccess, "scan", "list folder",
		fmt.Sprintf("%s unreadable after %d attempts", path, MaxAttempts), lastErr)
}

// CheckDirectory verifies that path is a directory the current user can
// list and, when write is set, create files in.
func CheckDirectory(path string, write bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrAccess, "scan", "check folder", path, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrAccess, "scan", "check folder", fmt.Sprintf("%s is not a directory", path), nil)
	}
	if err := checkPermissions(path, write); err != nil {
		return services.Wrap(services.ErrAccess, "scan", "check folder", fmt.Sprintf("%s: insufficient permissions", path), err)
	}
	return nil
}
