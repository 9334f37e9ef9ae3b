// Package watch reports changes to the RDF documents a session was loaded
// from, so that the session can be reloaded.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/semform/loader"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 64

	// DefaultDebounce is used when Config.Debounce is zero.
	DefaultDebounce = 500 * time.Millisecond
)

// Config configures RDF document watching.
type Config struct {
	// Roots are files, directories or glob patterns to watch.
	Roots []string

	// Debounce is how long to collect changes before reporting them.
	Debounce time.Duration

	// ExcludeDirs lists directory names to skip (e.g., ".git").
	ExcludeDirs []string
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file watch operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Change is one changed document.
type Change struct {
	Path      string
	Operation Operation
}

// Event is a debounced batch of changes, sorted by path.
type Event struct {
	Changes []Change
}

// Paths returns the changed paths.
func (e Event) Paths() []string {
	out := make([]string, len(e.Changes))
	for i, c := range e.Changes {
		out[i] = c.Path
	}
	return out
}

// Watcher watches RDF documents and emits debounced change batches.
type Watcher struct {
	config   Config
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool
	dirs     []string

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	// Output channel
	events chan Event

	// Metrics
	droppedEvents atomic.Int64
}

// New creates a watcher for the directories holding the configured roots.
func New(config Config, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	// Build exclude set
	excludes := make(map[string]bool)
	if len(config.ExcludeDirs) == 0 {
		excludes[".git"] = true
	} else {
		for _, dir := range config.ExcludeDirs {
			excludes[dir] = true
		}
	}

	return &Watcher{
		config:   config,
		watcher:  fsw,
		logger:   logger,
		excludes: excludes,
		dirs:     watchDirs(config.Roots),
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// watchDirs returns the directories to watch for roots: a directory
// itself, the parent of a file, or the static prefix of a glob.
func watchDirs(roots []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, root := range roots {
		dir := root
		if i := strings.IndexAny(root, "*?[{"); i >= 0 {
			dir = filepath.Dir(root[:i] + "x")
		} else if info, err := os.Stat(root); err != nil || !info.IsDir() {
			dir = filepath.Dir(root)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Events returns the channel of debounced change batches. It is closed
// when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Dropped returns the number of batches dropped because the consumer was
// too slow.
func (w *Watcher) Dropped() int64 {
	return w.droppedEvents.Load()
}

// Start begins watching. Existing RDF files are hashed so that saves
// without content changes are not reported.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.dirs {
		if err := w.addWatchesRecursive(dir); err != nil {
			return err
		}
	}

	// Start the event processing goroutine
	go w.processEvents(ctx)

	w.logger.Info("RDF watcher started",
		"dirs", w.dirs,
		"debounce", w.config.Debounce)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// addWatchesRecursive adds watches to all directories and seeds hashes.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			if isRDF(path) {
				if content, err := os.ReadFile(path); err == nil {
					w.setHash(path, contentHash(content))
				}
			}
			return nil
		}

		// Skip excluded and hidden directories
		base := filepath.Base(path)
		if path != root && (w.excludes[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		// Add watch
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events) // Close events channel when goroutine exits
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !isRDF(path) {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("RDF document change detected",
		"path", path,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending turns accumulated changes into one event.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	// Copy and clear pending
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changes []Change
	for path := range toProcess {
		if c, ok := w.classify(path); ok {
			changes = append(changes, c)
		}
	}
	if len(changes) == 0 {
		return
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	w.sendEvent(Event{Changes: changes})
}

// classify decides whether a pending path really changed.
func (w *Watcher) classify(path string) (Change, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("Failed to read file for hash check",
				"path", path,
				"error", err)
			return Change{}, false
		}
		// Deleted: report only documents we knew about
		w.hashMu.Lock()
		_, had := w.hashes[path]
		delete(w.hashes, path)
		w.hashMu.Unlock()
		return Change{Path: path, Operation: OpDelete}, had
	}

	newHash := contentHash(content)

	// Check if content actually changed
	oldHash, hadHash := w.getHash(path)
	if hadHash && oldHash == newHash {
		return Change{}, false
	}
	w.setHash(path, newHash)

	if !hadHash {
		return Change{Path: path, Operation: OpCreate}, true
	}
	return Change{Path: path, Operation: OpModify}, true
}

// sendEvent sends an event to the output channel.
func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event", "changes", len(event.Changes))
	default:
		w.droppedEvents.Add(1)
		w.logger.Warn("Watch event channel full, dropping event",
			"changes", len(event.Changes),
			"dropped_total", w.droppedEvents.Load())
	}
}

func (w *Watcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *Watcher) getHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

func isRDF(path string) bool {
	_, err := loader.FormatFromPath(path)
	return err == nil
}

func contentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
