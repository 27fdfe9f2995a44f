package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Op says whether a PDF appeared in or left the watched directory.
type Op int

const (
	Added Op = iota
	Removed
)

func (o Op) String() string {
	if o == Removed {
		return "removed"
	}
	return "added"
}

// Event reports one PDF change.
type Event struct {
	Path string
	Op   Op
}

// Watcher feeds the upload list from a directory.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

// New creates a Watcher.
func New(logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{watcher: w, logger: logger}, nil
}

// Watch emits an Added event for every PDF already in dir, then one event per
// change until ctx is done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var existing []Event
	for _, e := range entries {
		if !e.IsDir() && isPDF(e.Name()) {
			existing = append(existing, Event{Path: filepath.Join(dir, e.Name()), Op: Added})
		}
	}

	events := make(chan Event, 100)
	go func() {
		defer close(events)
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, ev := range existing {
			if !send(ev) {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isPDF(event.Name) {
					continue
				}
				var op Op
				switch {
				case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
					op = Added
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					op = Removed
				default:
					continue
				}
				w.logger.Debug("upload directory changed", "path", event.Name, "op", op)
				if !send(Event{Path: event.Name, Op: op}) {
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("upload watcher error", "error", err)
			}
		}
	}()
	return events, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
