// Package history keeps a SQLite log of every reminder the scheduler
// fired, delivered or not.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mavwarf/planner/internal/paths"

	_ "modernc.org/sqlite"
)

// Outcome is the delivery result of a fired reminder.
type Outcome string

const (
	Delivered Outcome = "delivered"
	Failed    Outcome = "failed"
)

// Entry is one fired reminder.
type Entry struct {
	ID      int64
	FiredAt time.Time
	EventID string
	Title   string
	Setting int
	Method  string
	Outcome Outcome
	Error   string
}

// Recorder accepts fired reminders. *Store is the production
// implementation.
type Recorder interface {
	Record(e Entry) error
}

// Store is a history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// The daemon writes while the CLI reads.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	ddl := `
CREATE TABLE IF NOT EXISTS fired (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    fired_at  INTEGER NOT NULL,
    event_id  TEXT    NOT NULL DEFAULT '',
    title     TEXT    NOT NULL DEFAULT '',
    setting   INTEGER NOT NULL DEFAULT 0,
    method    TEXT    NOT NULL DEFAULT '',
    outcome   TEXT    NOT NULL,
    error     TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_fired_at ON fired(fired_at DESC);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

// Record appends e. A zero FiredAt means now.
func (s *Store) Record(e Entry) error {
	if e.FiredAt.IsZero() {
		e.FiredAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO fired (fired_at, event_id, title, setting, method, outcome, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.FiredAt.Unix(), e.EventID, e.Title, e.Setting, e.Method, string(e.Outcome), e.Error,
	)
	if err != nil {
		return fmt.Errorf("history record: %w", err)
	}
	return nil
}

// DayCutoff returns local midnight days-1 days ago, so days=1 means
// "today".
func DayCutoff(days int) time.Time {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(days - 1))
}

// Entries returns entries from the last days days, oldest first. Zero
// means all.
func (s *Store) Entries(days int) ([]Entry, error) {
	if days <= 0 {
		return s.EntriesSince(time.Time{})
	}
	return s.EntriesSince(DayCutoff(days))
}

// EntriesSince returns entries at or after cutoff, oldest first.
func (s *Store) EntriesSince(cutoff time.Time) ([]Entry, error) {
	var since int64
	if !cutoff.IsZero() {
		since = cutoff.Unix()
	}
	rows, err := s.db.Query(
		`SELECT id, fired_at, event_id, title, setting, method, outcome, error
		 FROM fired WHERE fired_at >= ? ORDER BY fired_at, id`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		var outcome string
		if err := rows.Scan(&e.ID, &ts, &e.EventID, &e.Title, &e.Setting, &e.Method, &outcome, &e.Error); err != nil {
			return nil, err
		}
		e.FiredAt = time.Unix(ts, 0)
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clean removes entries older than days days and returns how many went.
func (s *Store) Clean(days int) (int, error) {
	res, err := s.db.Exec(`DELETE FROM fired WHERE fired_at < ?`, DayCutoff(days).Unix())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Clear deletes everything.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM fired`)
	return err
}
