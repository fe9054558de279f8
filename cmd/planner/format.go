package main

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/tmpl"
)

// --- ANSI color helpers (disabled when NO_COLOR env var is set) ---

var noColor = os.Getenv("NO_COLOR") != ""

func ansi(code, s string) string {
	if noColor {
		return s
	}
	return code + s + "\033[0m"
}

func bold(s string) string   { return ansi("\033[1m", s) }
func dim(s string) string    { return ansi("\033[2m", s) }
func cyan(s string) string   { return ansi("\033[36m", s) }
func green(s string) string  { return ansi("\033[32m", s) }
func yellow(s string) string { return ansi("\033[33m", s) }
func red(s string) string    { return ansi("\033[31m", s) }

const defaultWidth = 100

// termWidth is the stdout column count, or defaultWidth when stdout is
// not a terminal.
func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// padR pads s to width runes with spaces on the right.
func padR(s string, width int) string {
	if pad := width - utf8.RuneCountInString(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// truncate shortens s to at most width runes, marking the cut with "…".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

// fmtWhen renders an event's start for tables.
func fmtWhen(e event.Event) string {
	if e.IsAllDay {
		return e.StartTime.Format("2006-01-02") + " all day"
	}
	return e.StartTime.Format("2006-01-02 15:04")
}

// fmtRepeat is a compact recurrence label for tables.
func fmtRepeat(e event.Event) string {
	r := e.Recurrence
	if r == nil {
		return "-"
	}
	if r.Interval > 1 {
		return fmt.Sprintf("%s/%d", strings.ToLower(string(r.Frequency)), r.Interval)
	}
	return strings.ToLower(string(r.Frequency))
}

// fmtReminders lists the lead times ("15m push, 1d email"), marking
// latched settings with a check.
func fmtReminders(ns []event.NotificationSetting) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		p := tmpl.ShortMinutes(n.NotifyBefore) + " " + strings.ToLower(string(n.Method))
		if n.HasNotified {
			p += " ✓"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ", ")
}

// fmtAgo is a coarse relative time for history listings.
func fmtAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

// eventRow renders one list line sized to width.
func eventRow(pos int, e event.Event, width int) string {
	const (
		colPos    = 4
		colWhen   = 20
		colRepeat = 10
	)
	rest := width - colPos - colWhen - colRepeat - 3
	if rest < 20 {
		rest = 20
	}
	titleWidth := rest * 3 / 5
	remWidth := rest - titleWidth - 1

	title := e.Title
	if len(e.Categories) > 0 {
		title += " [" + strings.Join(e.Categories, ", ") + "]"
	}
	return fmt.Sprintf("%s %s %s %s %s",
		cyan(padR(fmt.Sprintf("%d", pos), colPos)),
		padR(fmtWhen(e), colWhen),
		padR(fmtRepeat(e), colRepeat),
		padR(truncate(title, titleWidth), titleWidth),
		dim(truncate(fmtReminders(e.NotificationSettings), remWidth)))
}
