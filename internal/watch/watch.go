// Package watch reports changed asset files, batched after a quiet period.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrClosed is returned when adding paths to a closed watcher.
var ErrClosed = errors.New("watcher already closed")

// Watcher watches directory trees for changes to files with the given
// suffixes. Changes are collected until nothing happened for the debounce
// interval, then delivered as one sorted batch.
type Watcher struct {
	fs       *fsnotify.Watcher
	suffixes []string
	debounce time.Duration
	log      *zap.Logger

	batches chan []string
	errors  chan error
	done    chan struct{}
	closed  bool
}

// New creates a watcher. An empty suffix list matches every file.
func New(debounce time.Duration, log *zap.Logger, suffixes ...string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	w := &Watcher{
		fs:       fsWatch,
		suffixes: suffixes,
		debounce: debounce,
		log:      log,
		batches:  make(chan []string),
		errors:   make(chan error),
		done:     make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Batches delivers sets of changed paths. It is closed by Close.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Errors delivers watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errors }

// AddRecursive starts watching dir and all of its sub-directories.
func (w *Watcher) AddRecursive(dir string) error {
	if w.closed {
		return ErrClosed
	}
	return w.addTree(dir)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fs.Add(path)
		}
		return nil
	})
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() {
	if w.closed {
		return
	}
	w.closed = true
	close(w.done)
}

// Matches reports whether path has one of the watched suffixes.
func (w *Watcher) Matches(path string) bool {
	if len(w.suffixes) == 0 {
		return true
	}
	for _, s := range w.suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func (w *Watcher) start() {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	defer func() {
		timer.Stop()
		w.fs.Close()
		close(w.batches)
		close(w.errors)
	}()

	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// New directories are watched as they appear.
			if e.Op&fsnotify.Create != 0 {
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					if err := w.addTree(e.Name); err != nil {
						w.log.Warn("watching new directory", zap.String("dir", e.Name), zap.Error(err))
					}
					continue
				}
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 || !w.Matches(e.Name) {
				continue
			}
			w.log.Debug("file changed", zap.String("path", e.Name), zap.Stringer("op", e.Op))
			pending[e.Name] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			clear(pending)
			select {
			case w.batches <- batch:
			case <-w.done:
				return
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", zap.Error(err))
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}

		case <-w.done:
			return
		}
	}
}
