//go:build !unix

package fsaccess

// checkPermissions is a no-op where access(2) is unavailable; failures
// surface when the directory is actually read or written.
func checkPermissions(string, bool) error { return nil }
