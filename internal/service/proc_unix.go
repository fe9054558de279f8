//go:build unix

package service

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// alive reports whether pid exists. Signal 0 only probes.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

func terminate(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

// detached starts the child in its own session so it survives the
// terminal closing.
func detached() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// Wait polls until pid exits or timeout passes.
func Wait(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for alive(pid) {
		if time.Now().After(deadline) {
			return fmt.Errorf("process %d still running after %v", pid, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}
