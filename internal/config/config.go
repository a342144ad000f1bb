package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"chapterize/internal/chapters"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
	DownloadDir string `toml:"download_dir"`
}

// Tools contains external executable overrides. Empty values are resolved by
// searching the bundle directory, the executable's directory, then PATH.
type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	YtDlp     string `toml:"yt_dlp"`
	BundleDir string `toml:"bundle_dir"`
}

// Chapters contains parsing and formatting choices for chapter text.
type Chapters struct {
	Layout        string `toml:"layout"`
	ZeroTitle     string `toml:"zero_title"`
	IntroTitle    string `toml:"intro_title"`
	CheckDuration bool   `toml:"check_duration"`
}

// Remux contains settings for single-file chapter application.
type Remux struct {
	Mode           string `toml:"mode"`
	Suffix         string `toml:"suffix"`
	BackupOriginal bool   `toml:"backup_original"`
}

// Batch contains settings for folder runs.
type Batch struct {
	Mode                    string   `toml:"mode"`
	Extensions              []string `toml:"extensions"`
	AccessRetryDelaySeconds int      `toml:"access_retry_delay_seconds"`
}

// Timeouts bounds external process calls, in seconds. Zero disables the bound.
type Timeouts struct {
	ToolProbe  int `toml:"tool_probe"`
	MediaProbe int `toml:"media_probe"`
	Remux      int `toml:"remux"`
	Download   int `toml:"download"`
}

// History contains settings for the batch run log.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for chapterize.
//
// Configuration sections by subsystem:
//   - Paths: log, state, and download directories
//   - Tools: ffmpeg, ffprobe, and yt-dlp locations
//   - Chapters: parser layout and zero-time title policy
//   - Remux: output mode and backups for single files
//   - Batch: folder run mode, extensions, and access retries
//   - Timeouts: external process bounds
//   - History: sqlite run log
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	Chapters Chapters `toml:"chapters"`
	Remux    Remux    `toml:"remux"`
	Batch    Batch    `toml:"batch"`
	Timeouts Timeouts `toml:"timeouts"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and state directories. The download
// directory is created on demand by the download command.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the cross-process batch lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "batch.lock")
}

// HistoryPath is the sqlite database holding batch run history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath is the persistent log file.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "chapterize.log")
}

// AccessRetryDelay returns the base delay between folder listing attempts.
func (c *Config) AccessRetryDelay() time.Duration {
	return time.Duration(c.Batch.AccessRetryDelaySeconds) * time.Second
}

// ToolProbeTimeout bounds version probes of external tools.
func (t Timeouts) ToolProbeTimeout() time.Duration { return seconds(t.ToolProbe) }

// MediaProbeTimeout bounds ffprobe calls.
func (t Timeouts) MediaProbeTimeout() time.Duration { return seconds(t.MediaProbe) }

// RemuxTimeout bounds each ffmpeg strip or inject call.
func (t Timeouts) RemuxTimeout() time.Duration { return seconds(t.Remux) }

// DownloadTimeout bounds each yt-dlp call.
func (t Timeouts) DownloadTimeout() time.Duration { return seconds(t.Download) }

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ChapterOptions converts the chapters section into parser and formatter
// settings. Values are assumed validated.
func (c *Config) ChapterOptions() chapters.Options {
	layout, _ := chapters.ParseLayout(c.Chapters.Layout)
	zero, _ := chapters.ParseZeroTitlePolicy(c.Chapters.ZeroTitle)
	return chapters.Options{
		Parse:  chapters.ParseOptions{Layout: layout},
		Format: chapters.FormatOptions{ZeroTitle: zero, IntroTitle: c.Chapters.IntroTitle},
	}
}
