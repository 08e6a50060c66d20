package watchfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/goodCoderXD/cync/internal/model"
)

// eventBuffer decouples bursty filesystem activity (editor save-all,
// branch checkouts) from the blocking uploads performed downstream.
const eventBuffer = 256

// Watcher delivers model.Event envelopes for every change under a
// root directory.
type Watcher struct {
	root string
	fs   *fsnotify.Watcher
	log  logr.Logger

	events chan model.Event

	// dirs tracks every path registered as a directory, so Remove and
	// Rename notifications — whose target no longer exists and cannot
	// be stat'ed — still report IsDir correctly.
	dirs map[string]bool
}

// New creates a watcher for the subtree rooted at root. Call Start to
// begin delivery and Stop to shut down.
func New(root string, log logr.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "create filesystem watcher", err)
	}

	return &Watcher{
		root:   root,
		fs:     fsw,
		log:    log,
		events: make(chan model.Event, eventBuffer),
		dirs:   make(map[string]bool),
	}, nil
}

// Start registers the root and all existing subdirectories and begins
// translating notifications onto the Events channel.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watchDir(path)
		}
		return nil
	})
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "register watch directories", err)
	}

	go w.loop()
	return nil
}

// Events returns the envelope stream. The channel is closed after
// Stop once the translation loop drains.
func (w *Watcher) Events() <-chan model.Event {
	return w.events
}

// Stop ends notification delivery and releases the underlying
// watches. Safe to call once the consumer is done; pending buffered
// envelopes are still readable until the channel closes.
func (w *Watcher) Stop() error {
	return w.fs.Close()
}

// watchDir registers one directory and remembers it for IsDir
// inference on later removals.
func (w *Watcher) watchDir(path string) error {
	if err := w.fs.Add(path); err != nil {
		return err
	}
	w.dirs[path] = true
	return nil
}

// loop translates fsnotify notifications until the underlying watcher
// closes, then closes the envelope channel.
func (w *Watcher) loop() {
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.translate(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error(err, "watch error")
		}
	}
}

// translate converts one fsnotify notification into zero or more
// envelopes. fsnotify ops are a bitmask; Create and Write are handled
// first since they can coincide with Chmod noise.
func (w *Watcher) translate(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		info, err := os.Stat(ev.Name)
		if err != nil {
			// Gone already (temp file churn). Nothing to mirror.
			return
		}
		if info.IsDir() {
			// Register the new directory before reporting it, so
			// events inside it are not missed.
			if err := w.watchDir(ev.Name); err != nil {
				w.log.Error(err, "watch new directory", "path", ev.Name)
			}
			w.send(model.Event{Kind: model.KindCreated, Path: ev.Name, IsDir: true})
			return
		}
		w.send(model.Event{Kind: model.KindCreated, Path: ev.Name})

	case ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		w.send(model.Event{Kind: model.KindModified, Path: ev.Name, IsDir: info.IsDir()})

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// The rename's new name arrives separately as a Create; the
		// old name is a deletion from the mirror's perspective.
		isDir := w.dirs[ev.Name]
		delete(w.dirs, ev.Name)
		if isDir {
			// A renamed subtree produces no events for its
			// descendants, so their bookkeeping must be pruned here
			// or it lingers for the rest of the run.
			prefix := ev.Name + string(filepath.Separator)
			for registered := range w.dirs {
				if strings.HasPrefix(registered, prefix) {
					delete(w.dirs, registered)
				}
			}
		}
		w.send(model.Event{Kind: model.KindDeleted, Path: ev.Name, IsDir: isDir})
	}
}

// send delivers an envelope, dropping it if the consumer has fallen
// eventBuffer events behind. A dropped notification's only retry is a
// later event touching the same path, consistent with the engine's
// best-effort model.
func (w *Watcher) send(ev model.Event) {
	select {
	case w.events <- ev:
	default:
		w.log.Info("event buffer full, dropping", "event", ev.String())
	}
}
