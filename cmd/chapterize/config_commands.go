package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chapterize/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			writeLines(cmd.OutOrStdout(), []string{
				"Wrote sample configuration to " + target,
				"Run `chapterize deps` to check that ffmpeg can be found.",
			})
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: user config dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

// initTarget resolves the --path flag, falling back to the default location.
func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue != "" {
		path, err := config.ExpandPath(flagValue)
		if err != nil {
			return "", fmt.Errorf("resolve --path: %w", err)
		}
		return path, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("default config path: %w", err)
	}
	return path, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			source := ctx.configPath
			if _, err := os.Stat(source); err != nil {
				source += " (not found, using defaults)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintln(out, renderTable(tableSpec{headers: []string{"Setting", "Value"}}, settingRows(cfg)))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func settingRows(cfg *config.Config) [][]string {
	return [][]string{
		{"paths.log_dir", cfg.Paths.LogDir},
		{"paths.state_dir", cfg.Paths.StateDir},
		{"paths.download_dir", cfg.Paths.DownloadDir},
		{"chapters.layout", cfg.Chapters.Layout},
		{"chapters.zero_title", cfg.Chapters.ZeroTitle},
		{"chapters.check_duration", yesNo(cfg.Chapters.CheckDuration)},
		{"remux.mode", cfg.Remux.Mode},
		{"remux.backup_original", yesNo(cfg.Remux.BackupOriginal)},
		{"batch.mode", cfg.Batch.Mode},
		{"batch.extensions", strings.Join(cfg.Batch.Extensions, " ")},
		{"history.enabled", yesNo(cfg.History.Enabled)},
		{"logging.level", cfg.Logging.Level},
	}
}
