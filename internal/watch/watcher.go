// Package watch reports when render inputs change on disk.
package watch

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultQuietPeriod is how long the watcher waits after the last filesystem
// event before reporting a change. Editors and copy tools often write a file
// in several steps.
const DefaultQuietPeriod = 250 * time.Millisecond

// Event reports that one or more watched files changed, or that watching
// failed.
type Event struct {
	Paths []string
	Error error
}

// Watcher watches a fixed set of files and sends an Event whenever the
// content of any of them changes.
type Watcher struct {
	paths   map[string]bool
	watcher *fsnotify.Watcher
	events  chan Event
	done    chan struct{}
	quiet   time.Duration

	mu      sync.Mutex
	running bool
	last    map[string][sha256.Size]byte
}

// NewWatcher creates a Watcher for the given files.
func NewWatcher(paths ...string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to watch")
	}

	w := &Watcher{
		paths:  make(map[string]bool, len(paths)),
		events: make(chan Event, 10),
		done:   make(chan struct{}),
		quiet:  DefaultQuietPeriod,
		last:   make(map[string][sha256.Size]byte),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.paths[abs] = true
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.watcher = fsWatcher

	return w, nil
}

// SetQuietPeriod changes the settle time. It must be called before Start.
func (w *Watcher) SetQuietPeriod(d time.Duration) {
	w.quiet = d
}

// Start begins watching. The parent directory of every file is watched so
// that files replaced by rename are still seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	dirs := make(map[string]bool)
	for p := range w.paths {
		if sum, err := fingerprint(p); err == nil {
			w.last[p] = sum
		}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	go w.processEvents()

	return nil
}

// Stop stops watching and closes the Events channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	w.watcher.Close()
}

// Events returns the channel for receiving change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) processEvents() {
	defer close(w.events)

	pending := make(map[string]bool)
	var settle <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.paths[name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending[name] = true
				settle = time.After(w.quiet)
			}

		case <-settle:
			settle = nil
			if !w.flush(pending) {
				return
			}
			pending = make(map[string]bool)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if !w.send(Event{Error: err}) {
				return
			}
		}
	}
}

// flush reports the pending files whose content differs from the last seen
// version. It returns false once the watcher is stopping.
func (w *Watcher) flush(pending map[string]bool) bool {
	var changed []string
	for p := range pending {
		sum, err := fingerprint(p)
		if err != nil {
			delete(w.last, p)
			if !w.send(Event{Error: err}) {
				return false
			}
			continue
		}
		if prev, ok := w.last[p]; ok && prev == sum {
			continue
		}
		w.last[p] = sum
		changed = append(changed, p)
	}
	if len(changed) == 0 {
		return true
	}
	sort.Strings(changed)
	return w.send(Event{Paths: changed})
}

func (w *Watcher) send(ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-w.done:
		return false
	}
}

func fingerprint(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
