package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTools(); err != nil {
		return err
	}
	c.normalizeChapters()
	c.normalizeRemux()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadDir)); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() error {
	var err error
	if strings.TrimSpace(c.Tools.BundleDir) == "" {
		if value, ok := os.LookupEnv(BundleDirEnv); ok {
			c.Tools.BundleDir = value
		}
	}
	if c.Tools.BundleDir, err = expandPath(strings.TrimSpace(c.Tools.BundleDir)); err != nil {
		return fmt.Errorf("tools.bundle_dir: %w", err)
	}
	for _, field := range []struct {
		key   string
		value *string
	}{
		{"tools.ffmpeg", &c.Tools.FFmpeg},
		{"tools.ffprobe", &c.Tools.FFprobe},
		{"tools.yt_dlp", &c.Tools.YtDlp},
	} {
		trimmed := strings.TrimSpace(*field.value)
		// Bare command names stay as-is so PATH lookup still applies.
		if trimmed == "" || !strings.ContainsAny(trimmed, `/\`) && !strings.HasPrefix(trimmed, "~") {
			*field.value = trimmed
			continue
		}
		if *field.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeChapters() {
	c.Chapters.Layout = strings.ToLower(strings.TrimSpace(c.Chapters.Layout))
	if c.Chapters.Layout == "" {
		c.Chapters.Layout = defaultChapterLayout
	}
	c.Chapters.ZeroTitle = strings.ToLower(strings.TrimSpace(c.Chapters.ZeroTitle))
	if c.Chapters.ZeroTitle == "" {
		c.Chapters.ZeroTitle = defaultZeroTitle
	}
	c.Chapters.IntroTitle = strings.TrimSpace(c.Chapters.IntroTitle)
	if c.Chapters.IntroTitle == "" {
		c.Chapters.IntroTitle = defaultIntroTitle
	}
}

func (c *Config) normalizeRemux() {
	c.Remux.Mode = strings.ToLower(strings.TrimSpace(c.Remux.Mode))
	if c.Remux.Mode == "" {
		c.Remux.Mode = defaultRemuxMode
	}
	c.Remux.Suffix = strings.TrimSpace(c.Remux.Suffix)
	if c.Remux.Suffix == "" {
		c.Remux.Suffix = defaultRemuxSuffix
	}
}

func (c *Config) normalizeBatch() {
	c.Batch.Mode = strings.ToLower(strings.TrimSpace(c.Batch.Mode))
	if c.Batch.Mode == "" {
		c.Batch.Mode = ModeNew
	}
	if len(c.Batch.Extensions) == 0 {
		c.Batch.Extensions = append([]string(nil), DefaultVideoExtensions...)
	} else {
		exts := make([]string, 0, len(c.Batch.Extensions))
		seen := make(map[string]struct{}, len(c.Batch.Extensions))
		for _, ext := range c.Batch.Extensions {
			normalized := strings.ToLower(strings.TrimSpace(ext))
			if normalized == "" {
				continue
			}
			if !strings.HasPrefix(normalized, ".") {
				normalized = "." + normalized
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		if len(exts) == 0 {
			exts = append(exts, DefaultVideoExtensions...)
		}
		c.Batch.Extensions = exts
	}
	if c.Batch.AccessRetryDelaySeconds < 0 {
		c.Batch.AccessRetryDelaySeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
