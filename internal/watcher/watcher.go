package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"
)

// Callback receives the path of a detected, fully-written JSON file.
// The callback owns the file from that point: it is responsible for
// deleting files it has fully consumed.
type Callback func(path string)

// Options configures a Watcher. Zero values take the defaults below.
type Options struct {
	// PollInterval is the full-listing interval used by the fallback
	// path (and by tests that force it). Default 100ms.
	PollInterval time.Duration

	// StableInterval is the size-poll interval of the completion
	// check. Default 100ms.
	StableInterval time.Duration

	// StableTimeout bounds the completion check. Default 2s.
	StableTimeout time.Duration

	// Workers bounds concurrent callback executions. Default 5.
	Workers int

	// PollOnly skips the fsnotify event path entirely. Used where the
	// folder lives on a mount whose change events are unreliable, and
	// by tests exercising the fallback.
	PollOnly bool

	// Logger for lifecycle and error reporting. Default slog.Default().
	Logger *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.StableInterval <= 0 {
		o.StableInterval = 100 * time.Millisecond
	}
	if o.StableTimeout <= 0 {
		o.StableTimeout = 2 * time.Second
	}
	if o.Workers <= 0 {
		o.Workers = 5
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Watcher observes a single directory. One instance serves one folder;
// the dedup set is per instance and per lifetime (it is not persisted
// across restarts).
type Watcher struct {
	folder string
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	processed map[string]struct{}
	running   bool

	fsw  *fsnotify.Watcher
	pool *ants.Pool
	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for folder, creating the directory if absent.
func New(folder string, opts Options) (*Watcher, error) {
	opts.applyDefaults()
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create watch folder %s: %w", folder, err)
	}
	return &Watcher{
		folder:    folder,
		opts:      opts,
		logger:    opts.Logger.With("component", "watcher", "folder", folder),
		processed: make(map[string]struct{}),
	}, nil
}

// Start begins observation and synchronously schedules every *.json
// file already present, so nothing that arrived during an outage is
// missed. Safe to call once per watcher.
func (w *Watcher) Start(cb Callback) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	pool, err := ants.NewPool(w.opts.Workers, ants.WithPanicHandler(func(v any) {
		w.logger.Error("callback panic", "panic", v)
	}))
	if err != nil {
		return fmt.Errorf("create dispatch pool: %w", err)
	}
	w.pool = pool
	w.done = make(chan struct{})

	// Existing files first. Files created between this scan and the
	// event subscription below are caught by the poll pass a polling
	// watcher runs anyway; on the event path fsnotify is subscribed
	// before the scan returns control to callers of Start.
	if !w.opts.PollOnly {
		if err := w.startEvents(cb); err != nil {
			w.logger.Warn("change notification unavailable, falling back to polling", "error", err)
		}
	}
	w.scan(cb)
	if w.fsw == nil {
		w.wg.Add(1)
		go w.pollLoop(cb)
		w.logger.Info("watching folder (polling)", "interval", w.opts.PollInterval)
	} else {
		w.logger.Info("watching folder (events)")
	}

	return nil
}

// Stop halts observation and waits for all in-flight callback
// invocations to finish before returning.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if w.fsw != nil {
		w.fsw.Close()
	}
	w.wg.Wait()

	// Drain in-flight callbacks before releasing pool resources.
	if err := w.pool.ReleaseTimeout(10 * time.Second); err != nil {
		w.logger.Warn("dispatch pool did not drain in time", "error", err)
	}
	w.logger.Info("watcher stopped")
}

// startEvents subscribes to fsnotify create/write events for the
// folder. An error leaves w.fsw nil and the caller degrades to polling.
func (w *Watcher) startEvents(cb Callback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.folder); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.eventLoop(cb)
	return nil
}

func (w *Watcher) eventLoop(cb Callback) {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.dispatch(ev.Name, cb)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) pollLoop(cb Callback) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.scan(cb)
		}
	}
}

// scan lists the folder and dispatches every unseen *.json file.
// Listing errors are logged and the watcher keeps scanning.
func (w *Watcher) scan(cb Callback) {
	entries, err := os.ReadDir(w.folder)
	if err != nil {
		w.logger.Error("list folder", "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.dispatch(filepath.Join(w.folder, entry.Name()), cb)
	}
}

// dispatch records the filename as processed and hands the file to the
// worker pool. The dedup mark happens before submission, not after
// completion, so a slow callback cannot cause a second dispatch of the
// same file.
func (w *Watcher) dispatch(path string, cb Callback) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return
	}
	if !w.markProcessed(name) {
		return
	}

	err := w.pool.Submit(func() {
		if err := waitForComplete(path, w.opts.StableInterval, w.opts.StableTimeout); err != nil {
			// Half-written or vanished. Unmark so a later pass can
			// pick it up once the writer finishes.
			w.unmark(name)
			w.logger.Debug("file skipped, not yet complete", "file", name, "error", err)
			return
		}
		cb(path)
	})
	if err != nil {
		// Pool is released or overloaded; let a later pass retry.
		w.unmark(name)
		w.logger.Error("dispatch failed", "file", name, "error", err)
	}
}

// markProcessed returns true if name was not yet in the dedup set.
func (w *Watcher) markProcessed(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, seen := w.processed[name]; seen {
		return false
	}
	w.processed[name] = struct{}{}
	return true
}

func (w *Watcher) unmark(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.processed, name)
}
