// Package remux rewrites a video's chapter table with ffmpeg.
//
// Chapters are applied in two stream-copy passes. Strip removes every
// existing chapter and global metadata entry, and Inject maps a freshly
// written FFMETADATA1 file onto the stripped copy. Apply drives both passes
// through scratch files that carry a per-call unique name and lives next to
// the target, so the final rename never crosses a filesystem.
package remux
