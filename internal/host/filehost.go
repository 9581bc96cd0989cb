package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/funclens/funclens/internal/lang"
	"github.com/funclens/funclens/internal/model"
)

// FileBuffer is a Buffer backed by a file on disk. Reload bumps the
// change tag whenever the content actually changed.
type FileBuffer struct {
	id       model.BufferID
	path     string
	language string

	mu    sync.Mutex
	lines []string
	tag   uint64
	valid bool
}

func (b *FileBuffer) ID() model.BufferID { return b.id }
func (b *FileBuffer) Path() string       { return b.path }
func (b *FileBuffer) Language() string   { return b.language }

func (b *FileBuffer) Lines(start, end int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) == 0 {
		return nil
	}
	if start < 1 {
		start = 1
	}
	if end <= 0 || end > len(b.lines) {
		end = len(b.lines)
	}
	if start > end {
		return nil
	}
	out := make([]string, end-start+1)
	copy(out, b.lines[start-1:end])
	return out
}

func (b *FileBuffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

func (b *FileBuffer) ChangeTag() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tag
}

func (b *FileBuffer) Valid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valid
}

// Reload re-reads the backing file. The change tag is bumped only when
// the content differs from what is loaded.
func (b *FileBuffer) Reload() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", b.path, err)
	}
	lines := splitLines(string(data))

	b.mu.Lock()
	defer b.mu.Unlock()
	if sameLines(b.lines, lines) {
		return nil
	}
	b.lines = lines
	b.tag++
	return nil
}

func (b *FileBuffer) invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.valid = false
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func sameLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Workspace opens and tracks FileBuffers and drives refresh hooks from
// filesystem events.
type Workspace struct {
	logger *log.Logger

	mu      sync.Mutex
	nextID  model.BufferID
	byPath  map[string]*FileBuffer
	byID    map[model.BufferID]*FileBuffer
	change  []func(Buffer)
	closed  []func(model.BufferID)
	watcher *fsnotify.Watcher
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(logger *log.Logger) *Workspace {
	return &Workspace{
		logger: logger,
		nextID: 1,
		byPath: make(map[string]*FileBuffer),
		byID:   make(map[model.BufferID]*FileBuffer),
	}
}

// Open loads path into a buffer, reusing an existing buffer for the same
// path. The language is inferred from the file extension.
func (w *Workspace) Open(path string) (*FileBuffer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w.mu.Lock()
	if b, ok := w.byPath[abs]; ok {
		w.mu.Unlock()
		return b, nil
	}
	id := w.nextID
	w.nextID++
	w.mu.Unlock()

	language := lang.ForExtension(filepath.Ext(abs))
	if language == "" {
		return nil, fmt.Errorf("%s: unsupported file type", path)
	}

	b := &FileBuffer{id: id, path: abs, language: language, valid: true}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	// First load counts as the initial mutation.
	if b.tag == 0 {
		b.tag = 1
	}

	w.mu.Lock()
	w.byPath[abs] = b
	w.byID[id] = b
	w.mu.Unlock()
	return b, nil
}

// Buffer returns the buffer with the given id, if tracked.
func (w *Workspace) Buffer(id model.BufferID) (Buffer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.byID[id]
	return b, ok
}

// BufferByPath returns the buffer tracking the given absolute path.
func (w *Workspace) BufferByPath(path string) (Buffer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.byPath[path]
	return b, ok
}

// OnChange registers fn to run after a tracked buffer's content changed.
func (w *Workspace) OnChange(fn func(Buffer)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.change = append(w.change, fn)
}

// OnClose registers fn to run when a tracked buffer goes away. Used to
// force-evict cache entries so none dangle past buffer destruction.
func (w *Workspace) OnClose(fn func(model.BufferID)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = append(w.closed, fn)
}

// Watch starts an fsnotify watcher over every open buffer's file and
// blocks until stop is closed. Write events reload the buffer and fire
// change hooks; remove/rename events invalidate it and fire close hooks.
func (w *Workspace) Watch(stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	w.mu.Lock()
	w.watcher = watcher
	paths := make([]string, 0, len(w.byPath))
	for p := range w.byPath {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	// Watch parent directories: editors replace files on save, which
	// drops a watch registered on the file itself.
	dirs := make(map[string]struct{})
	for _, p := range paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for d := range dirs {
		if err := watcher.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}

	for {
		select {
		case <-stop:
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		}
	}
}

func (w *Workspace) handleEvent(ev fsnotify.Event) {
	w.mu.Lock()
	b, tracked := w.byPath[ev.Name]
	change := append([]func(Buffer){}, w.change...)
	closed := append([]func(model.BufferID){}, w.closed...)
	w.mu.Unlock()

	if !tracked {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
		oldTag := b.ChangeTag()
		if err := b.Reload(); err != nil {
			w.logger.Warn("reload failed", "path", ev.Name, "err", err)
			return
		}
		if b.ChangeTag() == oldTag {
			return
		}
		w.logger.Debug("buffer changed", "path", ev.Name, "tag", b.ChangeTag())
		for _, fn := range change {
			fn(b)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		b.invalidate()
		w.mu.Lock()
		delete(w.byPath, ev.Name)
		delete(w.byID, b.ID())
		w.mu.Unlock()
		w.logger.Debug("buffer closed", "path", ev.Name)
		for _, fn := range closed {
			fn(b.ID())
		}
	}
}
