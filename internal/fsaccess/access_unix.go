//go:build unix

package fsaccess

import "golang.org/x/sys/unix"

func checkPermissions(path string, write bool) error {
	mode := uint32(unix.R_OK | unix.X_OK)
	if write {
		mode |= unix.W_OK
	}
	return unix.Access(path, mode)
}
