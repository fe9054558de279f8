package store

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher follows the store's directory rather than the file itself so
// that rename-based writes (ours and most editors') stay observed.
type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func (s *Store) watch() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(s.path)); err != nil {
		fw.Close()
		return err
	}
	w := &watcher{fs: fw, done: make(chan struct{})}
	s.w = w
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		s.watchLoop(w)
	}()
	return nil
}

func (s *Store) watchLoop(w *watcher) {
	target := filepath.Clean(s.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			// A rename onto the file shows up as Create on its name.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				s.reload()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("file watcher error")
		}
	}
}

// reload re-reads the file after an external change. Content identical
// to the store's own last write is the echo of a save and is skipped so
// unsaved in-memory edits survive.
func (s *Store) reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.WithError(err).Warn("reload failed")
		}
		return
	}
	if sha256.Sum256(data) == s.lastWrite {
		return
	}
	if s.applyLocked(data) {
		s.log.WithField("events", len(s.events)).Info("events file changed, reloaded")
	}
}

func (w *watcher) close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fs.Close()
		w.wg.Wait()
	})
	return err
}
