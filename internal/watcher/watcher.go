// Package watcher ingests files dropped into a per-tenant inbox directory.
//
// The inbox layout is <root>/<tenant>/<file>. Every file under a tenant directory is
// handed to the ingest callback for that tenant once writes settle.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// IngestFunc receives a settled file and the tenant whose inbox it landed in.
type IngestFunc func(tenantID, path string)

// Watcher watches an inbox root and its tenant directories.
type Watcher struct {
	root        string
	extensions  []string
	onIngest    IngestFunc
	validTenant func(string) bool
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	pending     map[string]*time.Timer
	done        chan struct{}
	started     bool
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watcher events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithTenantFilter rejects tenant directories whose name fails valid.
func WithTenantFilter(valid func(string) bool) WatcherOption {
	return func(w *Watcher) { w.validTenant = valid }
}

// NewWatcher creates a watcher for the inbox at root. extensions filters which files are
// ingested (empty = all).
func NewWatcher(root string, extensions []string, onIngest IngestFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:       filepath.Clean(root),
		extensions: extensions,
		onIngest:   onIngest,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the inbox if needed and watches it until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	w.started = true
	w.done = make(chan struct{})
	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = fw.Close()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	done := w.done
	w.mu.Unlock()
	w.logger.Info("inbox watcher started", zap.String("root", w.root), zap.Strings("extensions", w.extensions))
	go w.run(ctx, done, fw.Events, fw.Errors)
	return nil
}

// run owns the channels of one Start; Stop may clear w.watcher at any time.
func (w *Watcher) run(ctx context.Context, done chan struct{}, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.stop(done)
			return
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("inbox watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
		if _, ok := w.tenantFor(path); ok && w.matchExtension(path) {
			w.schedule(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancel(path)
	}
}

// handleNewDirectory watches a directory that appeared after Start and schedules what is
// already inside it. Scheduling shares the debounce with write events so a file is not
// ingested twice.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	w.syncDirectory(dir, w.schedule)
}

// tenantFor returns the tenant owning path: the first path element under the root.
// Files directly in the root and hidden files belong to nobody.
func (w *Watcher) tenantFor(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 || strings.HasPrefix(filepath.Base(path), ".") {
		return "", false
	}
	tenant := parts[0]
	if tenant == "" || tenant == ".." || strings.HasPrefix(tenant, ".") {
		return "", false
	}
	if w.validTenant != nil && !w.validTenant(tenant) {
		return "", false
	}
	return tenant, true
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

// schedule ingests path once no event has touched it for the debounce interval.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(path string) {
	tenant, ok := w.tenantFor(path)
	if !ok || w.onIngest == nil {
		return
	}
	w.logger.Info("ingesting inbox file", zap.String("tenant", tenant), zap.String("path", path))
	w.onIngest(tenant, path)
}

func (w *Watcher) syncDirectory(dir string, fn func(path string)) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if _, ok := w.tenantFor(path); ok && w.matchExtension(path) {
			fn(path)
		}
		return nil
	})
}

// SyncExistingFiles ingests every file already sitting in a tenant inbox.
// Call it after Start to pick up files dropped while the server was down.
func (w *Watcher) SyncExistingFiles() {
	w.logger.Debug("syncing inbox", zap.String("root", w.root))
	w.syncDirectory(w.root, w.ingest)
}

// Root returns the inbox directory.
func (w *Watcher) Root() string {
	return w.root
}

// Stop stops the watcher and drops pending ingests.
func (w *Watcher) Stop() {
	w.stop(nil)
}

// stop shuts down the running watcher. A non-nil done only matches the Start that
// created it, so a stale run cannot stop a restarted watcher.
func (w *Watcher) stop(done chan struct{}) {
	w.mu.Lock()
	if !w.started || w.watcher == nil || (done != nil && done != w.done) {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	close(w.done)
	w.mu.Unlock()
}
