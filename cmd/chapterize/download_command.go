package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chapterize/internal/download"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a video with yt-dlp",
		Long: `Download a video with yt-dlp into paths.download_dir (or --dir).

The best video and audio streams are merged into an mp4 named after the
video's title. Chapter text can then be added with "chapterize author" or by
writing <title>.txt next to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var onProgress func(download.Progress)
			var progress *downloadProgress
			if !quiet {
				progress = newDownloadProgress(cmd.ErrOrStderr())
				onProgress = progress.update
			}

			svc := ctx.serviceValue()
			task, err := svc.StartDownload(cmd.Context(), args[0], dir, onProgress)
			if err != nil {
				return err
			}
			result, err := task.Wait()
			if progress != nil {
				progress.finish()
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %q to %s\n", result.Title, result.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (defaults to paths.download_dir)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show progress")
	return cmd
}
