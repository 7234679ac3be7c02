package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWatcher_DebounceAndExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}

	var ingested []string
	var mu sync.Mutex
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}
	w := New([]string{dir}, []string{".txt"}, true, onIngest, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fPath := filepath.Join(sub, "f.txt")
	if err := os.WriteFile(fPath, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	count := len(ingested)
	mu.Unlock()
	if count < 1 {
		t.Errorf("expected at least one ingest callback, got %d", count)
	}
}

func TestMatchExtension(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/a/b.txt", []string{".txt"}, true},
		{"/a/b.TXT", []string{".txt"}, true},
		{"/a/b.txt", []string{"txt"}, true},
		{"/a/b.md", []string{".txt"}, false},
		{"/a/b", nil, true},
		{"/a/b", []string{}, true},
	}
	for _, tt := range tests {
		got := matchExtension(tt.path, tt.extensions)
		if got != tt.want {
			t.Errorf("matchExtension(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestWatcher_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.xyz"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	var ingested []string
	var mu sync.Mutex
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}
	w := New([]string{dir}, []string{".txt"}, true, onIngest, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.SyncExistingFiles()

	mu.Lock()
	defer mu.Unlock()
	if len(ingested) != 1 || !strings.HasSuffix(ingested[0], "a.txt") {
		t.Errorf("expected one ingested file a.txt, got %v", ingested)
	}
}

func TestWatcher_Start_createsMissingRootDirectory(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "watch", "me")

	w := New([]string{root}, []string{".txt"}, true, nil, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root directory should exist after Start: %v", err)
	}
}

func TestWatcher_RemoveCallback(t *testing.T) {
	dir := t.TempDir()
	fPath := filepath.Join(dir, "gone.txt")
	if err := os.WriteFile(fPath, []byte("bye"), 0600); err != nil {
		t.Fatal(err)
	}

	var removed []string
	var mu sync.Mutex
	onRemove := func(path string) {
		mu.Lock()
		removed = append(removed, path)
		mu.Unlock()
	}
	w := New([]string{dir}, []string{".txt"}, true, nil, onRemove)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(fPath); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(removed) != 1 || !strings.HasSuffix(removed[0], "gone.txt") {
		t.Errorf("expected remove callback for gone.txt, got %v", removed)
	}
}

func TestWatcher_HandleNewDirectory(t *testing.T) {
	dir := t.TempDir()

	var ingested []string
	var mu sync.Mutex
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}
	w := New([]string{dir}, []string{".txt"}, true, onIngest, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	newFolder := filepath.Join(dir, "new-folder")
	if err := os.MkdirAll(newFolder, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(newFolder, "doc.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(newFolder, "ignore.xyz"), []byte("skip"), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(800 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	found := false
	for _, p := range ingested {
		if strings.HasSuffix(p, "doc.txt") {
			found = true
		}
		if strings.HasSuffix(p, "ignore.xyz") {
			t.Error("ignore.xyz should not be ingested")
		}
	}
	if !found {
		t.Errorf("expected doc.txt to be ingested, got %v", ingested)
	}
}
