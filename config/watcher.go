package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Watcher observes a resolved config file and reports re-loaded settings
// whenever the file changes on disk.  It never mutates a Config in place;
// callers that want the new settings rebuild their endpoints explicitly.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher

	mu  sync.RWMutex
	cur Config

	updates chan Config
	done    chan struct{}
	once    sync.Once
}

// Watch resolves path and starts watching the file it names.  Fails if the
// file cannot be resolved: there is nothing to watch when running on
// default settings.
func Watch(path string) (*Watcher, error) {
	resolved, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	cur, err := Load(resolved)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fs watcher")
	}
	if err = fsw.Add(resolved); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch %s", resolved)
	}

	w := &Watcher{
		path:    resolved,
		fsw:     fsw,
		cur:     cur,
		updates: make(chan Config, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Current returns the most recently loaded settings.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Updates delivers a Config each time the file is rewritten.  The channel
// is closed when the Watcher is closed.
func (w *Watcher) Updates() <-chan Config { return w.updates }

// Path reports the resolved file being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops watching.  Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	defer close(w.updates)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			next, err := Load(w.path)
			if err != nil {
				// Malformed intermediate writes are skipped; the next
				// complete write wins.
				continue
			}
			w.mu.Lock()
			w.cur = next
			w.mu.Unlock()

			select {
			case w.updates <- next:
			case <-w.done:
				return
			default:
				// Slow consumer: drop the stale update, keep the latest
				// visible through Current.
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}
