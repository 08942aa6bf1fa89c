package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aide-dev/aide/internal/source"
	"github.com/aide-dev/aide/internal/store"
)

// watchDebounce is how long a file must be quiet after a write before
// it is re-ingested. Session logs are appended in bursts.
const watchDebounce = 500 * time.Millisecond

// Watch re-ingests session files as they change under logDir until ctx
// is cancelled. onIngest, when non-nil, is called after each file is
// re-ingested with the number of sessions written.
func Watch(ctx context.Context, logDir string, st *store.Store, onIngest func(path string, sessions int, err error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logDir); err != nil {
		return fmt.Errorf("watching %s: %w", logDir, err)
	}
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", logDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = watcher.Add(filepath.Join(logDir, e.Name()))
		}
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range timers {
				t.Stop()
			}
			mu.Unlock()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New project directories appear as sessions start.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !strings.HasSuffix(event.Name, ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if isSubagentPath(logDir, event.Name) {
				continue
			}

			path := event.Name
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Stop()
			}
			timers[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()

				n, err := ingestOne(logDir, path, st)
				if onIngest != nil {
					onIngest(path, n, err)
				}
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return fmt.Errorf("watching %s: %w", logDir, err)
			}
		}
	}
}

// ingestOne parses and persists a single session file.
func ingestOne(logDir, path string, st *store.Store) (int, error) {
	projectDir := filepath.Base(filepath.Dir(path))
	df := source.DiscoveredFile{
		Path:        path,
		ProjectDir:  projectDir,
		ProjectName: source.DeriveProjectName(projectDir),
	}

	events, err := source.ParseFile(path)
	if err != nil {
		return 0, err
	}

	written := 0
	for id, ev := range events.Sessions {
		if len(ev.Turns) == 0 {
			continue
		}
		if err := st.ReplaceSession(BuildSession(id, ev, df)); err != nil {
			return written, err
		}
		written++
	}

	if info, err := os.Stat(path); err == nil {
		_ = st.LogIngest(path, info.Size(), info.ModTime().UnixNano(), written)
	}
	return written, nil
}

func isSubagentPath(logDir, path string) bool {
	rel, err := filepath.Rel(logDir, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "subagents" {
			return true
		}
	}
	return false
}
