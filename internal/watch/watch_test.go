package watch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orizon-lang/treescan/internal/watch"
)

func TestWatcherReportsAWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.json")

	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	w, err := watch.New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`{"updated": true}`), 0o644); err != nil {
		t.Fatalf("WriteFile (update): %v", err)
	}

	select {
	case ev := <-w.Events():
		if ev.Op&watch.OpWrite == 0 && ev.Op&watch.OpCreate == 0 {
			t.Errorf("event Op = %v, want at least OpWrite or OpCreate", ev.Op)
		}
	case err := <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a write event")
	}
}

func TestNewFailsOnMissingFile(t *testing.T) {
	if _, err := watch.New(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("New on a missing file: want error, got nil")
	}
}
