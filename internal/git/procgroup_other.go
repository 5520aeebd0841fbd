//go:build !unix

package git

import "os/exec"

// setProcessGroup is a no-op; cancellation kills git only and WaitDelay
// bounds the wait for its helpers.
func setProcessGroup(*exec.Cmd) {}
