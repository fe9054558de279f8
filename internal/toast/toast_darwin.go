//go:build darwin

package toast

import (
	"fmt"
	"os/exec"
)

// appleScript builds the osascript line for one reminder banner.
func appleScript(title, message string) string {
	return fmt.Sprintf(`display notification "%s" with title "%s" subtitle "planner" sound name "default"`,
		quoteAppleScript(message), quoteAppleScript(title))
}

// Show posts a reminder banner through Notification Center.
func Show(title, message string) error {
	out, err := exec.Command("osascript", "-e", appleScript(title, message)).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %w: %s", err, out)
	}
	return nil
}
