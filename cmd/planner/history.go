package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/Mavwarf/planner/internal/history"
	"github.com/Mavwarf/planner/internal/paths"
)

func historyCmd(args []string, g globals) {
	cfg := loadConfig(g)
	h, err := history.Open(cfg.Path(paths.HistoryFileName))
	if err != nil {
		fatal(err)
	}
	defer h.Close()

	if len(args) > 0 {
		switch args[0] {
		case "clean":
			historyClean(h, args[1:])
			return
		case "clear":
			historyClean(h, nil)
			return
		}
	}

	days := 7
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fatalf("days must be a positive integer")
		}
		days = n
	}
	entries, err := h.Entries(days)
	if err != nil {
		fatal(err)
	}
	if len(entries) == 0 {
		fmt.Printf("No reminders fired in the last %d days.\n", days)
		return
	}
	renderHistory(os.Stdout, entries, time.Now())
}

// renderHistory prints entries oldest first with a delivery summary.
func renderHistory(w io.Writer, entries []history.Entry, now time.Time) {
	failed := 0
	for _, e := range entries {
		outcome := green(string(e.Outcome))
		if e.Outcome == history.Failed {
			failed++
			outcome = red(string(e.Outcome))
		}
		fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
			e.FiredAt.Format("2006-01-02 15:04"),
			dim(padR(fmtAgo(e.FiredAt, now), 9)),
			cyan(padR(e.EventID, 5)),
			padR(e.Title, 24),
			padR(e.Method, 6),
			outcome)
		if e.Error != "" {
			fmt.Fprintf(w, "    %s\n", dim(e.Error))
		}
	}
	fmt.Fprintf(w, "\n%d fired, %d delivered, %d failed\n", len(entries), len(entries)-failed, failed)
}

func historyClean(h *history.Store, args []string) {
	if len(args) == 0 {
		// No days argument, clear everything.
		if err := h.Clear(); err != nil {
			fatal(err)
		}
		fmt.Println("History cleared.")
		return
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days <= 0 {
		fatalf("days must be a positive integer")
	}
	n, err := h.Clean(days)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Removed %d entries older than %d days.\n", n, days)
}
