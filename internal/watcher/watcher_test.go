package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

type ingestLog struct {
	mu   sync.Mutex
	seen []string
}

func (l *ingestLog) record(tenant, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, tenant+":"+filepath.Base(path))
}

func (l *ingestLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := append([]string(nil), l.seen...)
	sort.Strings(out)
	return out
}

func waitFor(t *testing.T, l *ingestLog, n int) []string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := l.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(20 * time.Millisecond)
	}
	return l.snapshot()
}

func startWatcher(t *testing.T, root string, log *ingestLog, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{WithDebounce(50 * time.Millisecond)}, opts...)
	w := NewWatcher(root, []string{".txt", ".md"}, log.record, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_ingestsIntoTenantOfDirectory(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "alice"))
	log := &ingestLog{}
	startWatcher(t, root, log)

	writeFile(t, filepath.Join(root, "alice", "notes.txt"), "cells")
	writeFile(t, filepath.Join(root, "alice", "photo.png"), "x")
	writeFile(t, filepath.Join(root, "loose.txt"), "no tenant")

	waitFor(t, log, 1)
	time.Sleep(150 * time.Millisecond)
	got := log.snapshot()
	if len(got) != 1 || got[0] != "alice:notes.txt" {
		t.Errorf("ingested = %v, want [alice:notes.txt]", got)
	}
}

func TestWatcher_newTenantDirectory(t *testing.T) {
	root := t.TempDir()
	log := &ingestLog{}
	startWatcher(t, root, log)

	dir := filepath.Join(root, "bob", "week1")
	mkdirAll(t, dir)
	writeFile(t, filepath.Join(dir, "a.md"), "one")
	writeFile(t, filepath.Join(root, "bob", "b.txt"), "two")

	got := waitFor(t, log, 2)
	want := []string{"bob:a.md", "bob:b.txt"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("ingested = %v, want %v", got, want)
	}
}

func TestWatcher_tenantFilter(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "bad tenant"))
	mkdirAll(t, filepath.Join(root, "good"))
	log := &ingestLog{}
	startWatcher(t, root, log, WithTenantFilter(func(id string) bool { return id == "good" }))

	writeFile(t, filepath.Join(root, "bad tenant", "x.txt"), "x")
	writeFile(t, filepath.Join(root, "good", "y.txt"), "y")

	waitFor(t, log, 1)
	time.Sleep(150 * time.Millisecond)
	if got := log.snapshot(); len(got) != 1 || got[0] != "good:y.txt" {
		t.Errorf("ingested = %v", got)
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "carol"))
	writeFile(t, filepath.Join(root, "carol", "old.txt"), "before start")
	writeFile(t, filepath.Join(root, "carol", ".hidden.txt"), "skip")
	writeFile(t, filepath.Join(root, "carol", "skip.xyz"), "skip")

	log := &ingestLog{}
	w := startWatcher(t, root, log)
	w.SyncExistingFiles()

	if got := log.snapshot(); len(got) != 1 || got[0] != "carol:old.txt" {
		t.Errorf("ingested = %v", got)
	}
}

func TestWatcher_StopRightAfterStart(t *testing.T) {
	for i := 0; i < 50; i++ {
		w := NewWatcher(t.TempDir(), nil, func(string, string) {})
		if err := w.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		w.Stop()
		w.Stop()
	}
}

func TestWatcher_restartAfterStop(t *testing.T) {
	root := t.TempDir()
	mkdirAll(t, filepath.Join(root, "dave"))
	log := &ingestLog{}
	w := NewWatcher(root, []string{".txt"}, log.record, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer w.Stop()

	writeFile(t, filepath.Join(root, "dave", "after.txt"), "restarted")
	if got := waitFor(t, log, 1); len(got) != 1 || got[0] != "dave:after.txt" {
		t.Errorf("ingested = %v", got)
	}
}

func TestWatcher_Start_createsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "inbox", "nested")
	w := startWatcher(t, root, &ingestLog{})
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root should exist after Start: %v", err)
	}
	if w.Root() != root {
		t.Errorf("Root() = %q", w.Root())
	}
}

func TestTenantFor(t *testing.T) {
	w := NewWatcher("/inbox", nil, nil)
	tests := []struct {
		path   string
		tenant string
		ok     bool
	}{
		{"/inbox/alice/a.txt", "alice", true},
		{"/inbox/alice/sub/a.txt", "alice", true},
		{"/inbox/a.txt", "", false},
		{"/inbox/.trash/a.txt", "", false},
		{"/inbox/alice/.a.txt.swp", "", false},
		{"/elsewhere/alice/a.txt", "", false},
	}
	for _, tt := range tests {
		tenant, ok := w.tenantFor(tt.path)
		if tenant != tt.tenant || ok != tt.ok {
			t.Errorf("tenantFor(%q) = (%q, %v), want (%q, %v)", tt.path, tenant, ok, tt.tenant, tt.ok)
		}
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
	}
	for _, tt := range tests {
		if got := matchExtension(tt.path, tt.extensions); got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/tmp/a", "/tmp/a", true},
		{"/tmp/a", "/tmp/a/b.txt", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}

func mkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}
