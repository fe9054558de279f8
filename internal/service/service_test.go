package service

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestCheckWithoutPIDFile(t *testing.T) {
	st, err := Check(filepath.Join(t.TempDir(), "planner.pid"))
	if err != nil {
		t.Fatal(err)
	}
	if st.Running || st.Stale || st.String() != "not running" {
		t.Errorf("Check = %+v", st)
	}
}

func TestCheckSelfIsRunning(t *testing.T) {
	p := filepath.Join(t.TempDir(), "planner.pid")
	if err := WritePID(p, os.Getpid()); err != nil {
		t.Fatal(err)
	}
	st, err := Check(p)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Running || st.PID != os.Getpid() {
		t.Errorf("Check = %+v, want running self", st)
	}
}

func TestCheckStale(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}
	pid := cmd.Process.Pid
	cmd.Wait()

	p := filepath.Join(t.TempDir(), "planner.pid")
	WritePID(p, pid)
	st, err := Check(p)
	if err != nil {
		t.Fatal(err)
	}
	if st.Running || !st.Stale {
		t.Errorf("Check = %+v, want stale", st)
	}
	if err := Stop(p, time.Second); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop(stale) = %v, want ErrNotRunning", err)
	}
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale pid file not removed")
	}
}

func TestReadPIDInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "planner.pid")
	os.WriteFile(p, []byte("banana"), 0644)
	if _, err := ReadPID(p); err == nil {
		t.Error("ReadPID(banana) should fail")
	}
	if _, err := Check(p); err == nil {
		t.Error("Check with invalid pid file should fail")
	}
}

func TestRemovePIDOnlyOwn(t *testing.T) {
	p := filepath.Join(t.TempDir(), "planner.pid")
	WritePID(p, 1234)
	RemovePID(p, 999)
	if _, err := os.Stat(p); err != nil {
		t.Error("RemovePID removed a file it did not own")
	}
	RemovePID(p, 1234)
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Error("RemovePID did not remove own file")
	}
}

func TestStartRefusesWhenRunning(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "planner.pid")
	WritePID(p, os.Getpid())
	pid, err := Start(os.Args[0], []string{"-test.run=^$"}, p, filepath.Join(dir, "planner.log"))
	if !errors.Is(err, ErrAlreadyRunning) || pid != os.Getpid() {
		t.Errorf("Start = %d, %v, want ErrAlreadyRunning", pid, err)
	}
}

func TestWaitExitedProcess(t *testing.T) {
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start subprocess: %v", err)
	}
	pid := cmd.Process.Pid
	cmd.Wait()
	if err := Wait(pid, time.Second); err != nil {
		t.Errorf("Wait(exited) = %v", err)
	}
}
