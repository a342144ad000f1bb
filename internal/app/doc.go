// Package app wires configuration, resolved tools and the chapter pipeline
// into a Service that the CLI drives.
//
// Long-running operations (batch, apply, download, probe) are started on a
// goroutine and returned as a Task. Each operation class admits one task at
// a time; starting a second one while the first runs fails with
// runstate.ErrBusy.
package app
