// Package categories manages the user's list of event labels, stored
// one per line in a text file.
package categories

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Mavwarf/planner/internal/paths"
)

// Defaults seed a list whose file does not exist yet.
var Defaults = []string{"Work", "Personal", "Family", "Health", "Education", "Entertainment", "Other"}

// List is an ordered set of category names compared case-insensitively.
type List struct {
	names []string
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(Defaults...), nil
		}
		return nil, fmt.Errorf("reading categories: %w", err)
	}
	l := New()
	for _, line := range strings.Split(string(data), "\n") {
		l.Add(line)
	}
	return l, nil
}

// New builds a list from names, dropping blanks and duplicates.
func New(names ...string) *List {
	l := &List{}
	for _, n := range names {
		l.Add(n)
	}
	return l
}

// Save writes the list to path atomically.
func (l *List) Save(path string) error {
	data := strings.Join(l.names, "\n")
	if len(l.names) > 0 {
		data += "\n"
	}
	return paths.AtomicWrite(path, []byte(data))
}

// Names returns a copy of the names in order.
func (l *List) Names() []string {
	return append([]string(nil), l.names...)
}

func (l *List) index(name string) int {
	for i, n := range l.names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// Has reports whether name is in the list.
func (l *List) Has(name string) bool {
	return l.index(strings.TrimSpace(name)) >= 0
}

// Canonical returns the stored spelling of name.
func (l *List) Canonical(name string) (string, bool) {
	i := l.index(strings.TrimSpace(name))
	if i < 0 {
		return "", false
	}
	return l.names[i], true
}

// Add appends name and reports whether the list changed.
func (l *List) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || l.index(name) >= 0 {
		return false
	}
	l.names = append(l.names, name)
	return true
}

// Remove deletes name and reports whether it was present.
func (l *List) Remove(name string) bool {
	i := l.index(strings.TrimSpace(name))
	if i < 0 {
		return false
	}
	l.names = append(l.names[:i], l.names[i+1:]...)
	return true
}
