// Package watch wraps fsnotify for the CLI's -watch flag: a minimal
// single-file watcher with the same Events()/Errors() channel shape as
// the teacher's runtime/vfs filesystem watcher, scoped down to the one
// thing the CLI needs — "this bytecode file changed, recompile".
package watch

import "github.com/fsnotify/fsnotify"

// Op indicates which kind of change fsnotify reported.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event reports one filesystem change to the watched path.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches a single file for writes, translating fsnotify's
// richer event stream into Event/error channels the CLI's run loop
// selects on alongside everything else.
type Watcher struct {
	w   *fsnotify.Watcher
	evC chan Event
	erC chan error
}

// New starts watching path and returns once the watch is registered.
// The returned Watcher's loop runs on its own goroutine — it never
// touches the IR the CLI allocates and interprets, which stays owned by
// the CLI's own single-threaded run loop per spec.md §5.
func New(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &Watcher{w: w, evC: make(chan Event, 16), erC: make(chan error, 1)}
	go watcher.loop()

	return watcher, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}

			var op Op
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}

			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}

			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}

			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}

			if ev.Op&fsnotify.Chmod != 0 {
				op |= OpChmod
			}

			w.evC <- Event{Path: ev.Name, Op: op}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}

			w.erC <- err
		}
	}
}

// Events returns the channel of translated filesystem events.
func (w *Watcher) Events() <-chan Event { return w.evC }

// Errors returns the channel of underlying fsnotify errors.
func (w *Watcher) Errors() <-chan error { return w.erC }

// Close stops the watch.
func (w *Watcher) Close() error { return w.w.Close() }
