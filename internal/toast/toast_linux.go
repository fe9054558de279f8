//go:build linux

package toast

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

var (
	wslOnce sync.Once
	wsl     bool
)

// isWSL reports whether we run under the Windows Subsystem for Linux,
// where notify-send has no desktop to talk to.
func isWSL() bool {
	wslOnce.Do(func() {
		data, err := os.ReadFile("/proc/version")
		wsl = err == nil && isWSLVersion(string(data))
	})
	return wsl
}

func isWSLVersion(version string) bool {
	v := strings.ToLower(version)
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}

// Show displays a desktop notification: notify-send on a Linux desktop,
// a Windows toast via powershell.exe under WSL.
func Show(title, message string) error {
	var cmd *exec.Cmd
	if isWSL() {
		cmd = exec.Command("powershell.exe", "-NoProfile", "-Command", powershellScript(title, message))
	} else {
		cmd = exec.Command("notify-send", "--app-name=planner", title, message)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast failed: %w\n%s", err, out)
	}
	return nil
}
