// Package service runs the daemon as a detached background process
// tracked by a pid file.
package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Mavwarf/planner/internal/paths"
)

var (
	// ErrNotRunning means there is no live daemon behind the pid file.
	ErrNotRunning = errors.New("daemon is not running")
	// ErrAlreadyRunning means the pid file points at a live process.
	ErrAlreadyRunning = errors.New("daemon is already running")
)

// Status describes the daemon as seen through its pid file.
type Status struct {
	PID     int
	Running bool
	Stale   bool // pid file exists but the process is gone
}

func (s Status) String() string {
	switch {
	case s.Running:
		return fmt.Sprintf("running (pid %d)", s.PID)
	case s.Stale:
		return fmt.Sprintf("not running (stale pid file for %d)", s.PID)
	}
	return "not running"
}

// ReadPID parses the pid file.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s", pidPath)
	}
	return pid, nil
}

// WritePID records pid in the pid file.
func WritePID(pidPath string, pid int) error {
	return paths.AtomicWrite(pidPath, []byte(strconv.Itoa(pid)+"\n"))
}

// RemovePID deletes the pid file if it still names pid.
func RemovePID(pidPath string, pid int) {
	if got, err := ReadPID(pidPath); err == nil && got == pid {
		os.Remove(pidPath)
	}
}

// Check inspects the pid file.
func Check(pidPath string) (Status, error) {
	pid, err := ReadPID(pidPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	if alive(pid) {
		return Status{PID: pid, Running: true}, nil
	}
	return Status{PID: pid, Stale: true}, nil
}

// Start launches exe with args detached from the terminal, output going
// to logPath, and records its pid. A stale pid file is replaced.
func Start(exe string, args []string, pidPath, logPath string) (int, error) {
	st, err := Check(pidPath)
	if err != nil {
		return 0, err
	}
	if st.Running {
		return st.PID, ErrAlreadyRunning
	}
	if err := os.MkdirAll(filepath.Dir(logPath), paths.DirPerm); err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FilePerm)
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(exe, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detached()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("starting daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := WritePID(pidPath, pid); err != nil {
		return pid, fmt.Errorf("writing pid file: %w", err)
	}
	// The child outlives us; drop our handle without waiting.
	cmd.Process.Release()
	return pid, nil
}

// Stop terminates the daemon and waits up to timeout for it to exit.
func Stop(pidPath string, timeout time.Duration) error {
	st, err := Check(pidPath)
	if err != nil {
		return err
	}
	if !st.Running {
		if st.Stale {
			os.Remove(pidPath)
		}
		return ErrNotRunning
	}
	if err := terminate(st.PID); err != nil {
		return fmt.Errorf("stopping pid %d: %w", st.PID, err)
	}
	if err := Wait(st.PID, timeout); err != nil {
		return err
	}
	RemovePID(pidPath, st.PID)
	return nil
}
