// Package file provides a reflux.Watcher that turns files dropped into a
// directory into raw message payloads.
//
// Writers should create files atomically: write them elsewhere on the same
// filesystem and rename them into the watched directory, so the watcher
// never reads a partial payload.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits the contents of files that appear in a directory.
type Watcher struct {
	dir     string
	pattern string
	consume bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// Pattern restricts the watcher to file names matching a filepath.Match
// pattern. The default matches every file.
func Pattern(p string) Option {
	return func(w *Watcher) { w.pattern = p }
}

// Consume removes each file after its contents have been emitted, so every
// file yields exactly one payload. Without it, later writes to a file emit
// its contents again.
func Consume() Option {
	return func(w *Watcher) { w.consume = true }
}

// New creates a Watcher for dir.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, pattern: "*"}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch begins watching the directory and returns a channel that emits file
// contents. Files already present are emitted first, in name order.
func (w *Watcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if _, err := filepath.Match(w.pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", w.pattern, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", w.dir, err)
	}

	existing, err := w.existing()
	if err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer watcher.Close()

		for _, path := range existing {
			if !w.emit(ctx, out, path) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !w.matches(event.Name) {
					continue
				}
				trigger := fsnotify.Create
				if !w.consume {
					trigger |= fsnotify.Write
				}
				if event.Op&trigger == 0 {
					continue
				}
				if !w.emit(ctx, out, event.Name) {
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

// emit sends the contents of path. It reports false when ctx is done.
// Unreadable files and directories are skipped.
func (w *Watcher) emit(ctx context.Context, out chan<- []byte, path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	if w.consume {
		if err := os.Remove(path); err != nil {
			return true
		}
	}
	select {
	case out <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *Watcher) existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		if w.matches(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (w *Watcher) matches(path string) bool {
	ok, _ := filepath.Match(w.pattern, filepath.Base(path))
	return ok
}
