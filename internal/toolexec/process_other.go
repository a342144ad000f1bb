//go:build !unix

package toolexec

import "os/exec"

// isolate keeps exec's default cancellation, which kills only the tool.
func isolate(*exec.Cmd) {}
