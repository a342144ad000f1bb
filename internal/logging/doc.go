// Package logging builds the slog loggers chapterize writes with.
//
// Console output is a compact "time LEVEL component: message key=value" line;
// files get one JSON object per record. Batch runs tee into a per-run file
// opened with OpenRunLog, and WithContext copies run, item and stage values
// from a context onto a logger.
package logging
