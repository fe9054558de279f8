package toast

import (
	"fmt"
	"strings"
)

// escapeXML makes user text safe inside XML text nodes.
func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	).Replace(s)
}

// quotePowerShell doubles single quotes so s fits inside a PowerShell
// single-quoted string.
func quotePowerShell(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteAppleScript escapes backslashes and double quotes for an
// AppleScript string literal.
func quoteAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// powershellScript builds a Windows 10+ toast through the
// ToastNotificationManager XML API. It runs on native Windows and from
// WSL through powershell.exe.
func powershellScript(title, message string) string {
	t := quotePowerShell(escapeXML(title))
	m := quotePowerShell(escapeXML(message))
	return fmt.Sprintf(`
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom, ContentType = WindowsRuntime] | Out-Null

$xml = New-Object Windows.Data.Xml.Dom.XmlDocument
$xml.LoadXml('<toast scenario="reminder"><visual><binding template="ToastGeneric"><text>%s</text><text>%s</text><text placement="attribution">via planner</text></binding></visual></toast>')
$toast = [Windows.UI.Notifications.ToastNotification]::new($xml)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('{1AC14E77-02E7-4E5D-B744-2EB1AE5198B7}\WindowsPowerShell\v1.0\powershell.exe').Show($toast)
`, t, m)
}
