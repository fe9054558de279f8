// Package silent implements do-not-disturb: a state file holding the
// instant until which audible and on-screen reminders are muted.
package silent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Mavwarf/planner/internal/paths"
)

type state struct {
	SilentUntil string `json:"silent_until"`
}

// Mode is the silent state stored at one path. The CLI writes it and the
// daemon reads it on every delivery, so no restart is needed.
type Mode struct {
	path string
}

func At(path string) Mode {
	return Mode{path: path}
}

// Until returns the end of silent mode and true if it is active at now.
// A missing, unreadable or corrupt state file counts as not silent.
func (m Mode) Until(now time.Time) (time.Time, bool) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return time.Time{}, false
	}
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s.SilentUntil)
	if err != nil || !now.Before(t) {
		return time.Time{}, false
	}
	return t, true
}

func (m Mode) Active(now time.Time) bool {
	_, ok := m.Until(now)
	return ok
}

// Enable mutes reminders for d from now and returns the end instant.
func (m Mode) Enable(now time.Time, d time.Duration) (time.Time, error) {
	until := now.Add(d)
	data, err := json.MarshalIndent(state{SilentUntil: until.Format(time.RFC3339)}, "", "  ")
	if err != nil {
		return time.Time{}, fmt.Errorf("silent: marshal: %w", err)
	}
	if err := paths.AtomicWrite(m.path, data); err != nil {
		return time.Time{}, fmt.Errorf("silent: write: %w", err)
	}
	return until, nil
}

// Disable ends silent mode. It is not an error if it was not active.
func (m Mode) Disable() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("silent: remove %s: %w", m.path, err)
	}
	return nil
}
