//go:build windows

package toast

import (
	"fmt"
	"os/exec"
)

// Show posts a reminder toast through powershell.
func Show(title, message string) error {
	out, err := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command",
		powershellScript(title, message)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("powershell toast: %w: %s", err, out)
	}
	return nil
}
