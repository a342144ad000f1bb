package config

import (
	"errors"
	"fmt"
	"strings"

	"chapterize/internal/chapters"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateChapters(); err != nil {
		return err
	}
	if err := c.validateModes(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateChapters() error {
	if _, err := chapters.ParseLayout(c.Chapters.Layout); err != nil {
		return fmt.Errorf("chapters.layout: %w", err)
	}
	if _, err := chapters.ParseZeroTitlePolicy(c.Chapters.ZeroTitle); err != nil {
		return fmt.Errorf("chapters.zero_title: %w", err)
	}
	if strings.ContainsAny(c.Chapters.IntroTitle, "\r\n") {
		return errors.New("chapters.intro_title must be a single line")
	}
	return nil
}

func (c *Config) validateModes() error {
	for key, mode := range map[string]string{"remux.mode": c.Remux.Mode, "batch.mode": c.Batch.Mode} {
		if mode != ModeNew && mode != ModeOverwrite {
			return fmt.Errorf("%s must be %q or %q, got %q", key, ModeNew, ModeOverwrite, mode)
		}
	}
	if strings.ContainsAny(c.Remux.Suffix, `/\`) {
		return errors.New("remux.suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if err := ensureNonNegativeMap(map[string]int{
		"timeouts.tool_probe":              c.Timeouts.ToolProbe,
		"timeouts.media_probe":             c.Timeouts.MediaProbe,
		"timeouts.remux":                   c.Timeouts.Remux,
		"timeouts.download":                c.Timeouts.Download,
		"batch.access_retry_delay_seconds": c.Batch.AccessRetryDelaySeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
