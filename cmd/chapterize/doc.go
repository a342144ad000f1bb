// Command chapterize parses hand-typed chapter lists and embeds them into
// video files with ffmpeg.
//
// Typical use:
//
//	chapterize parse movie.txt            # preview the canonical chapter list
//	chapterize apply movie.mp4            # embed movie.txt into movie_chapters.mp4
//	chapterize batch ~/Videos --json      # process every video in a folder
//	chapterize author ~/Videos            # type companion files one video at a time
//
// Configuration is read from ~/.config/chapterize/config.toml or
// ./chapterize.toml; run "chapterize config init" to write a sample.
package main
