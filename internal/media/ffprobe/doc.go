// Package ffprobe runs ffprobe against a video and decodes its JSON report.
//
// The probe command prints streams and existing chapters from the Result,
// and chapter application uses DurationMS to warn about chapters that start
// after the end of the media.
package ffprobe
