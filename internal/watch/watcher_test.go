package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string, files []string, debounce time.Duration) (*atomic.Int32, chan struct{}) {
	t.Helper()
	var calls atomic.Int32
	fired := make(chan struct{}, 16)
	reload := func(context.Context) error {
		calls.Add(1)
		fired <- struct{}{}
		return nil
	}

	w, err := New(dir, files, debounce, reload, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not stop after cancel")
		}
	})
	return &calls, fired
}

func TestWatcher_ReloadsOnCatalogWrite(t *testing.T) {
	dir := t.TempDir()
	_, fired := startWatcher(t, dir, []string{"forging.json"}, 20*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "forging.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("reload was not triggered")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	calls, _ := startWatcher(t, dir, []string{"forging.json"}, 20*time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("reload called %d times, want 0", n)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	calls, fired := startWatcher(t, dir, []string{"recipes_remote.json"}, 300*time.Millisecond)

	path := filepath.Join(dir, "recipes_remote.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"A":{"B":1}}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("reload was not triggered")
	}
	time.Sleep(500 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("reload called %d times, want 1", n)
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), nil, 0, func(context.Context) error { return nil }, nil)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
