// Package chapters turns hand-typed chapter text into an ordered chapter list.
//
// Parse matches each non-blank line against two layouts ("1:30 Title" and
// "Title - 1:30") and reports lines it could not use as diagnostics. Format
// then pins a single zero-time entry to the front and removes duplicate
// (timecode, title) pairs without reordering anything else. Companion helpers
// read and write the "<video base>.txt" files that sit next to each video.
package chapters
