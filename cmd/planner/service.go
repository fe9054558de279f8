package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Mavwarf/planner/internal/paths"
	"github.com/Mavwarf/planner/internal/service"
)

const stopTimeout = 10 * time.Second

// serviceCmd manages a background daemon through its pid file.
func serviceCmd(args []string, g globals) {
	if len(args) != 1 {
		fatalf("usage: planner service start|stop|restart|status")
	}
	cfg := loadConfig(g)
	pidPath := cfg.Path(paths.PIDFileName)

	switch args[0] {
	case "start":
		serviceStart(g, pidPath, cfg.Path(paths.LogFileName))
	case "stop":
		serviceStop(pidPath)
	case "restart":
		if err := service.Stop(pidPath, stopTimeout); err != nil && !errors.Is(err, service.ErrNotRunning) {
			fatal(err)
		}
		serviceStart(g, pidPath, cfg.Path(paths.LogFileName))
	case "status":
		st, err := service.Check(pidPath)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("planner daemon: %s\n", st)
		if !st.Running {
			os.Exit(3)
		}
	default:
		fatalf("unknown service command %q (want start, stop, restart or status)", args[0])
	}
}

func serviceStart(g globals, pidPath, logPath string) {
	exe, err := os.Executable()
	if err != nil {
		fatal(err)
	}
	pid, err := service.Start(exe, daemonArgs(g), pidPath, logPath)
	if errors.Is(err, service.ErrAlreadyRunning) {
		fmt.Printf("planner daemon already running (pid %d)\n", pid)
		return
	}
	if err != nil {
		fatal(err)
	}
	fmt.Printf("planner daemon started (pid %d), logging to %s\n", pid, logPath)
}

func serviceStop(pidPath string) {
	err := service.Stop(pidPath, stopTimeout)
	if errors.Is(err, service.ErrNotRunning) {
		fmt.Println("planner daemon is not running")
		return
	}
	if err != nil {
		fatal(err)
	}
	fmt.Println("planner daemon stopped")
}

// daemonArgs forwards the global options so the child reads the same
// config and data directory.
func daemonArgs(g globals) []string {
	var args []string
	if g.configPath != "" {
		args = append(args, "--config", g.configPath)
	}
	if g.dataDir != "" {
		args = append(args, "--data", g.dataDir)
	}
	return append(args, "daemon")
}
