// File: control/watcher.go
// Author: momentics <momentics@gmail.com>
//
// Config-file hot reload. Watches one JSON file through fsnotify and
// pushes every successful decode into a ConfigStore, which fans the
// change out to its reload listeners. Editors that replace the file
// (rename-over) are handled by re-adding the watch path.

package control

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"github.com/momentics/ioloop/api"
)

// Watcher ties a config file to a ConfigStore.
type Watcher struct {
	path   string
	store  *ConfigStore
	fsw    *fsnotify.Watcher
	done   chan struct{}
	closed atomic.Bool
}

// NewWatcher loads path into store and starts watching it for
// changes. The file must hold a JSON object.
func NewWatcher(path string, store *ConfigStore) (*Watcher, error) {
	w := &Watcher{path: path, store: store, done: make(chan struct{})}
	if err := w.reload(); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	w.fsw = fsw
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := w.reload(); err != nil {
					log.Printf("control: reload %q: %v", w.path, err)
				}
			}
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				// Replaced atomically; re-add once the new file exists.
				if _, err := os.Stat(w.path); err == nil {
					_ = w.fsw.Add(w.path)
					if err := w.reload(); err != nil {
						log.Printf("control: reload %q: %v", w.path, err)
					}
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("control: watcher %q: %v", w.path, err)
		}
	}
}

// reload decodes the file and merges it into the store.
func (w *Watcher) reload() error {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	var cfg map[string]any
	if err := sonic.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	w.store.Set(cfg)
	return nil
}

// Close stops watching. Idempotent.
func (w *Watcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return api.ErrWatcherClosed
	}
	err := w.fsw.Close()
	<-w.done
	return err
}
