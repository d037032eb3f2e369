package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultPollInterval = 500 * time.Millisecond

// DirWatcher reports hand-history files that appear or change in a directory.
type DirWatcher struct {
	Dir      string
	watcher  *fsnotify.Watcher
	done     chan struct{}
	mu       sync.Mutex
	scanMu   sync.Mutex
	stopOnce sync.Once

	// seen holds the last reported size and mod time per file.
	seen         map[string]fileStamp
	pollInterval time.Duration
	onFile       func(path string)
	onError      func(err error)
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

type WatcherConfig struct {
	// OnFile is called once per new or changed hand file, from a single goroutine.
	OnFile  func(path string)
	OnError func(err error)
	// SkipExisting marks files already present at Start as seen.
	SkipExisting bool
	PollInterval time.Duration
}

// NewDirWatcher creates a watcher for dir. Nothing is reported until Start.
func NewDirWatcher(dir string, cfg WatcherConfig) (*DirWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %s is not a directory", dir)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	dw := &DirWatcher{
		Dir:          filepath.Clean(dir),
		watcher:      w,
		done:         make(chan struct{}),
		seen:         make(map[string]fileStamp),
		pollInterval: interval,
		onFile:       cfg.OnFile,
		onError:      cfg.OnError,
	}
	if cfg.SkipExisting {
		files, err := ListHandFiles(dw.Dir)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		for _, f := range files {
			if st, ok := stampOf(f); ok {
				dw.seen[f] = st
			}
		}
	}
	return dw, nil
}

// Start begins watching and reports any unseen files already present.
func (dw *DirWatcher) Start() error {
	slog.Info("watcher starting", "dir", dw.Dir)
	if err := dw.watcher.Add(dw.Dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dw.Dir, err)
	}
	go dw.watchLoop()
	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (dw *DirWatcher) Stop() {
	dw.stopOnce.Do(func() {
		slog.Info("watcher stopped", "dir", dw.Dir)
		close(dw.done)
		_ = dw.watcher.Close()
	})
}

func (dw *DirWatcher) watchLoop() {
	ticker := time.NewTicker(dw.pollInterval)
	defer ticker.Stop()

	dw.scan()
	for {
		select {
		case <-dw.done:
			return
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !IsHandFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				dw.check(filepath.Clean(event.Name))
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			if dw.onError != nil {
				dw.onError(err)
			}
		case <-ticker.C:
			// Periodic poll as fallback
			dw.scan()
		}
	}
}

func (dw *DirWatcher) scan() {
	files, err := ListHandFiles(dw.Dir)
	if err != nil {
		if dw.onError != nil {
			dw.onError(err)
		}
		return
	}
	for _, f := range files {
		dw.check(f)
	}
}

// check reports path if its size or mod time changed since the last report.
// An empty file is not reported; writers usually create before they fill.
func (dw *DirWatcher) check(path string) {
	dw.scanMu.Lock()
	defer dw.scanMu.Unlock()

	st, ok := stampOf(path)
	if !ok || st.size == 0 {
		return
	}
	dw.mu.Lock()
	prev, seen := dw.seen[path]
	if seen && prev == st {
		dw.mu.Unlock()
		return
	}
	dw.seen[path] = st
	dw.mu.Unlock()

	slog.Debug("hand file changed", "path", path, "size", st.size)
	if dw.onFile != nil {
		dw.onFile(path)
	}
}

func stampOf(path string) (fileStamp, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileStamp{}, false
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}, true
}

// ListHandFiles returns the hand files in dir, oldest first.
func ListHandFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsHandFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(filepath.Clean(dir), e.Name()))
	}
	sortByModTime(files)
	return files, nil
}

// sortByModTime sorts paths oldest-first using a single os.Stat per file,
// avoiding the O(n²) stat calls that arise from calling os.Stat inside the
// sort comparator. Ties keep name order.
func sortByModTime(paths []string) {
	modTimes := make(map[string]time.Time, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			modTimes[p] = info.ModTime()
		}
	}
	sort.SliceStable(paths, func(i, j int) bool {
		ti, tj := modTimes[paths[i]], modTimes[paths[j]]
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return paths[i] < paths[j]
	})
}

// IsHandFile reports whether path names a hand-history file.
// Hidden and temporary files are ignored.
func IsHandFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".jsonl"
}
