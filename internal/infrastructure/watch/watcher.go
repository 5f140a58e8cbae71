package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event describes why a refresh was requested.
type Event struct {
	Path       string
	ChangeType string // "create", "write", "remove", "rename", "schedule" or "start"
	At         time.Time
}

// FileWatcher watches individual files through their parent directories, so
// exports replaced by rename are still seen.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filter   *FileFilter
	debounce time.Duration
	onChange func(Event)
}

// NewFileWatcher creates a watcher for files. A zero debounce uses 500ms.
func NewFileWatcher(files []string, debounce time.Duration, onChange func(Event)) (*FileWatcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if debounce == 0 {
		debounce = 500 * time.Millisecond
	}
	fw := &FileWatcher{
		watcher:  w,
		filter:   NewFileFilter(files, DefaultIgnore),
		debounce: debounce,
		onChange: onChange,
	}
	for _, dir := range fw.filter.Dirs() {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return fw, nil
}

// Run starts the event loop. It blocks until the context is cancelled.
func (w *FileWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	debouncer := NewDebouncer(w.debounce, func(ev Event) {
		if w.onChange != nil {
			w.onChange(ev)
		}
	})
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			changeType := opToChangeType(event.Op)
			if changeType == "" || !w.filter.Matches(event.Name) {
				continue
			}
			debouncer.Trigger(Event{Path: event.Name, ChangeType: changeType, At: time.Now()})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func opToChangeType(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	default:
		return ""
	}
}
