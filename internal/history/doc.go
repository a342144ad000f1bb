// Package history keeps a SQLite log of batch runs and their per-file
// outcomes so earlier reports can be listed and reopened.
//
// A run row is written when a batch starts, one item row is added as each
// file finishes, and the run's counters are filled in when the batch ends.
// Runs that never finish keep a NULL finished_at and show as interrupted.
package history
