package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestPricingWatcher_TriggersReloadOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte("models: {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write pricing file: %v", err)
	}

	watcher, err := NewPricingWatcher(PricingWatcherConfig{
		Path:             path,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewPricingWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = watcher.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("models:\n  openai: {}\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite pricing file: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if reloads.Load() == 0 {
		t.Fatal("expected at least one reload after file change")
	}

	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	<-watchDone
}

func TestPricingWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	if err := os.WriteFile(path, []byte("models: {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write pricing file: %v", err)
	}

	watcher, err := NewPricingWatcher(PricingWatcherConfig{
		Path:             path,
		DebounceInterval: 20 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("NewPricingWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	go func() {
		_ = watcher.Watch(ctx, func() error {
			reloads.Add(1)
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(dir, "notes.yaml")
	if err := os.WriteFile(other, []byte("unrelated\n"), 0o644); err != nil {
		t.Fatalf("failed to write unrelated file: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0 for unrelated file", n)
	}

	if err := watcher.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestPricingWatcher_RequiresPath(t *testing.T) {
	if _, err := NewPricingWatcher(PricingWatcherConfig{}, nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}
