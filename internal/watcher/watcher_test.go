package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirWatcherStopIsIdempotent(t *testing.T) {
	t.Parallel()

	dw, err := NewDirWatcher(t.TempDir(), WatcherConfig{})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	dw.Stop()
	dw.Stop()
}

func TestNewDirWatcherRejectsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "hand.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewDirWatcher(path, WatcherConfig{}); err == nil {
		t.Fatalf("expected error for non-directory path")
	}
}

func TestDirWatcherReportsNewHandFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gotCh := make(chan string, 4)
	dw, err := NewDirWatcher(dir, WatcherConfig{
		PollInterval: 50 * time.Millisecond,
		OnFile: func(path string) {
			select {
			case gotCh <- path:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	handPath := filepath.Join(dir, "hand-0001.json")
	if err := os.WriteFile(handPath, []byte(`{"metadata":{}}`), 0o600); err != nil {
		t.Fatalf("write hand file: %v", err)
	}

	select {
	case got := <-gotCh:
		if filepath.Clean(got) != filepath.Clean(handPath) {
			t.Fatalf("reported path = %q, want %q", got, handPath)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for hand file")
	}
}

func TestDirWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	gotCh := make(chan string, 4)
	dw, err := NewDirWatcher(dir, WatcherConfig{
		PollInterval: 50 * time.Millisecond,
		OnFile: func(path string) {
			select {
			case gotCh <- path:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer dw.Stop()

	if err := dw.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	for _, name := range []string{"notes.txt", ".hidden.json", "hand.json~"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("ignore me"), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	select {
	case got := <-gotCh:
		t.Fatalf("unexpected report: %q", got)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestDirWatcherSkipExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "old.json")
	if err := os.WriteFile(old, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	gotCh := make(chan string, 4)
	dw, err := NewDirWatcher(dir, WatcherConfig{
		SkipExisting: true,
		PollInterval: 50 * time.Millisecond,
		OnFile:       func(path string) { gotCh <- path },
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer dw.Stop()
	if err := dw.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}

	select {
	case got := <-gotCh:
		t.Fatalf("existing file reported: %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsHandFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{"a/b/hand.json", true},
		{"hands.JSONL", true},
		{"hand.txt", false},
		{".hand.json", false},
		{"hand.json~", false},
	}
	for _, tt := range tests {
		if got := IsHandFile(tt.path); got != tt.want {
			t.Fatalf("IsHandFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestListHandFilesOldestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"c.json", "a.json", "b.txt", "b.json"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("{}"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		ts := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, ts, ts); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	files, err := ListHandFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"c.json", "a.json", "b.json"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if filepath.Base(files[i]) != want[i] {
			t.Fatalf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
}
