// Package store keeps the event collection and mirrors it to a single
// JSON file. All access goes through one mutex shared by the CLI, the
// scheduler and the file watcher.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Mavwarf/planner/internal/event"
	"github.com/Mavwarf/planner/internal/logger"
	"github.com/Mavwarf/planner/internal/paths"
)

// ErrNothingToMirror is returned by New when a passive store is pointed
// at a file that does not exist.
var ErrNothingToMirror = errors.New("passive store: events file does not exist")

// Mode selects whether the store may originate structural changes.
type Mode int

const (
	// Active stores accept add, remove, replace, clear and edit.
	Active Mode = iota
	// Passive stores mirror a file owned by another process. Only
	// notification flags may be written back (via Update).
	Passive
)

func (m Mode) String() string {
	if m == Passive {
		return "passive"
	}
	return "active"
}

// ParseMode accepts "active" or "passive" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return Active, nil
	case "passive", "":
		return Passive, nil
	}
	return 0, fmt.Errorf("unknown store mode %q (want active or passive)", s)
}

// Store is the shared event collection.
type Store struct {
	mu        sync.Mutex
	path      string
	autoSave  bool
	mode      Mode
	events    []event.Event
	lastWrite [sha256.Size]byte
	log       logrus.FieldLogger
	w         *watcher
}

// Match is a search hit: the event and its position.
type Match struct {
	Index int
	Event event.Event
}

// New opens the store at path, loads it and starts watching it for
// external changes. A nil log discards output.
func New(path string, autoSave bool, mode Mode, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &Store{
		path:     path,
		autoSave: autoSave,
		mode:     mode,
		log:      log.WithField("file", path),
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("store: %w", err)
		}
		if mode == Passive {
			return nil, ErrNothingToMirror
		}
		if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	s.Load()
	if err := s.watch(); err != nil {
		s.log.WithError(err).Warn("file watcher unavailable, external edits will not be picked up")
	}
	return s, nil
}

// Close stops the file watcher. The store stays usable.
func (s *Store) Close() error {
	if s.w == nil {
		return nil
	}
	return s.w.close()
}

func (s *Store) Path() string { return s.path }

func (s *Store) Mode() Mode { return s.mode }

// Load re-reads the file. Missing, unreadable, empty or malformed files
// leave the current collection untouched.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).Warn("read failed, keeping current events")
		}
		return
	}
	s.applyLocked(data)
}

// applyLocked replaces the collection with the decoded data. It reports
// whether the collection was replaced. A replaced collection no longer
// matches the last write, so the echo marker is cleared.
func (s *Store) applyLocked(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	var loaded []event.Event
	if err := json.Unmarshal(trimmed, &loaded); err != nil {
		s.log.WithError(err).Warn("malformed events file, keeping last good state")
		return false
	}
	for i := range loaded {
		loaded[i].Normalize()
	}
	s.events = loaded
	s.lastWrite = [sha256.Size]byte{}
	s.assignMissingIDs()
	return true
}

func (s *Store) assignMissingIDs() {
	for i := range s.events {
		if s.events[i].ID == "" {
			s.events[i].ID = s.nextID()
		}
	}
}

// nextID returns "#n" with n one past the largest numeric id in use, so
// ids stay unique after removals.
func (s *Store) nextID() string {
	hi := 0
	for _, e := range s.events {
		if n, err := strconv.Atoi(strings.TrimPrefix(e.ID, "#")); err == nil && n > hi {
			hi = n
		}
	}
	return "#" + strconv.Itoa(hi+1)
}

// Save writes the whole collection to disk. Failures are logged and
// returned; the in-memory state stays authoritative either way.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	events := s.events
	if events == nil {
		events = []event.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		s.log.WithError(err).Error("encode events")
		return fmt.Errorf("encode events: %w", err)
	}
	s.lastWrite = sha256.Sum256(data)
	if err := paths.AtomicWrite(s.path, data); err != nil {
		s.log.WithError(err).Error("save events")
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

func (s *Store) autoSaveLocked() {
	if s.autoSave {
		_ = s.saveLocked()
	}
}

// Add appends e and returns its index, or -1 in passive mode. Blank ids
// are assigned.
func (s *Store) Add(e event.Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Active {
		return -1
	}
	e.Normalize()
	if e.ID == "" {
		e.ID = s.nextID()
	}
	s.events = append(s.events, e)
	s.autoSaveLocked()
	return len(s.events) - 1
}

// Remove deletes the event at i and returns it.
func (s *Store) Remove(i int) (event.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Active || i < 0 || i >= len(s.events) {
		return event.Event{}, false
	}
	removed := s.events[i]
	s.events = append(s.events[:i], s.events[i+1:]...)
	s.autoSaveLocked()
	return removed, true
}

// Replace swaps the event at i for e and returns the old one. A blank id
// on e inherits the old id.
func (s *Store) Replace(i int, e event.Event) (event.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Active || i < 0 || i >= len(s.events) {
		return event.Event{}, false
	}
	old := s.events[i]
	if e.ID == "" {
		e.ID = old.ID
	}
	e.Normalize()
	s.events[i] = e
	s.autoSaveLocked()
	return old, true
}

// Clear removes every event.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Active {
		return false
	}
	s.events = []event.Event{}
	s.autoSaveLocked()
	return true
}

// Edit applies fn to the event at i in place.
func (s *Store) Edit(i int, fn func(e *event.Event)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Active || i < 0 || i >= len(s.events) {
		return false
	}
	fn(&s.events[i])
	s.events[i].Normalize()
	s.autoSaveLocked()
	return true
}

// Get returns a copy of the event at i.
func (s *Store) Get(i int) (event.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.events) {
		return event.Event{}, false
	}
	return s.events[i].Clone(), true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Events returns a copy of the collection.
func (s *Store) Events() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	for i, e := range s.events {
		out[i] = e.Clone()
	}
	return out
}

// Each calls fn for every event in order while holding the lock. fn
// receives a copy and must not call back into the store.
func (s *Store) Each(fn func(i int, e event.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		fn(i, e.Clone())
	}
}

// Update walks the collection in order with mutable access under a
// single lock acquisition. If any call to fn reports a change the file
// is saved once before the lock is released. Update is allowed in
// passive mode; it is how notification latches reach disk. fn must not
// call back into the store.
func (s *Store) Update(fn func(i int, e *event.Event) bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for i := range s.events {
		if fn(i, &s.events[i]) {
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	return true, s.saveLocked()
}

// Search returns the events matching query in field, in order.
func (s *Store) Search(query string, field event.Field) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Match
	for i, e := range s.events {
		if e.Matches(query, field) {
			out = append(out, Match{Index: i, Event: e.Clone()})
		}
	}
	return out
}
