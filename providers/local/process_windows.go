//go:build windows

package local

import (
	"os/exec"
	"strconv"
)

// killProcessGroup kills pid and its children.
func killProcessGroup(pid int) error {
	return exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(pid)).Run()
}

// setProcessGroup is a no-op; taskkill /T walks the tree instead.
func setProcessGroup(_ *exec.Cmd) {}
