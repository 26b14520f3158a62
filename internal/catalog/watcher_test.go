package catalog

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/coldcases/internal/testutil"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCase(t, dir, "jane", `{"name":"Jane"}`, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, dir, 30*time.Millisecond, quietLogger(), func(context.Context) {
			reloads.Add(1)
		})
	}()
	time.Sleep(100 * time.Millisecond)

	// A burst of writes settles into a single reload.
	testutil.WriteFile(t, filepath.Join(dir, "jane", "meta.json"), `{"name":"Jane Doe"}`)
	testutil.WriteFile(t, filepath.Join(dir, "jane", "index.md"), "story")
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return reloads.Load() >= 1
	}, "no reload after edits")

	// New case folders are picked up too.
	before := reloads.Load()
	testutil.WriteCase(t, dir, "john", `{"name":"John"}`, "")
	eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return reloads.Load() > before
	}, "no reload after new folder")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRelevant(t *testing.T) {
	root := "/cases"
	for path, want := range map[string]bool{
		"/cases/jane":             true,
		"/cases/jane/meta.json":   true,
		"/cases/jane/meta.yaml":   true,
		"/cases/jane/index.md":    true,
		"/cases/jane/notes.txt":   false,
		"/cases/jane/sub/deep.md": false,
		"/elsewhere/file":         false,
	} {
		if got := relevant(root, path); got != want {
			t.Errorf("relevant(%q) = %v, want %v", path, got, want)
		}
	}
}
