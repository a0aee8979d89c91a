package global

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestConfigWatcher_ReloadsOnWrite(t *testing.T) {
	store := NewConfigStore(t.TempDir())
	if _, err := store.LoadOrInit(); err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}

	changes := make(chan GlobalConfig, 4)
	w := NewConfigWatcher(store, func(cfg GlobalConfig) { changes <- cfg }, nil)
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watcher returned error: %v", err)
		}
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	cfg := DefaultConfig()
	cfg.Watcher.CooldownMS = 7000
	if err := store.Save(cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	select {
	case got := <-changes:
		if got.Watcher.CooldownMS != 7000 {
			t.Fatalf("expected reloaded cooldown 7000, got %d", got.Watcher.CooldownMS)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestConfigWatcher_IgnoresInvalidFile(t *testing.T) {
	store := NewConfigStore(t.TempDir())
	if _, err := store.LoadOrInit(); err != nil {
		t.Fatalf("LoadOrInit failed: %v", err)
	}
	changes := make(chan GlobalConfig, 4)
	w := NewConfigWatcher(store, func(cfg GlobalConfig) { changes <- cfg }, nil)
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(store.Path(), []byte("[watcher\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	select {
	case <-changes:
		t.Fatal("invalid config must not be delivered")
	case <-time.After(200 * time.Millisecond):
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watcher returned error: %v", err)
	}
}

func TestConfigWatcher_RequiresCallback(t *testing.T) {
	w := NewConfigWatcher(NewConfigStore(t.TempDir()), nil, nil)
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error without callback")
	}
}
