package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Mavwarf/planner/internal/paths"
	"github.com/Mavwarf/planner/internal/silent"
)

func silentCmd(args []string, g globals) {
	cfg := loadConfig(g)
	m := silent.At(cfg.Path(paths.SilentFileName))
	if err := runSilent(os.Stdout, m, args, time.Now()); err != nil {
		fatal(err)
	}
}

func runSilent(w io.Writer, m silent.Mode, args []string, now time.Time) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: planner silent [duration|off]")
	}
	if len(args) == 0 {
		if until, ok := m.Until(now); ok {
			fmt.Fprintf(w, "Silent until %s\n", until.Format("Mon 15:04"))
		} else {
			fmt.Fprintln(w, "Silent mode is off.")
		}
		return nil
	}
	if args[0] == "off" {
		if err := m.Disable(); err != nil {
			return err
		}
		fmt.Fprintln(w, "Silent mode off.")
		return nil
	}
	d, err := parseLength(args[0])
	if err != nil {
		return err
	}
	if d == 0 {
		return fmt.Errorf("silent duration must be positive")
	}
	until, err := m.Enable(now, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Silent until %s\n", until.Format("Mon 15:04"))
	return nil
}
