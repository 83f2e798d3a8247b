package viewstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watch keeps view bodies in memory until ctx is done. Any change to a view
// file in the directory, including edits made by other processes, evicts
// that view from the cache.
func (s *ViewStore) Watch(ctx context.Context) error {
	if s == nil {
		return disabled("watching views")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("viewstore: ensure views directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("viewstore: create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("viewstore: watch %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
	klog.V(2).InfoS("Watching views directory", "dir", s.dir)

	go s.watch(ctx, watcher)
	return nil
}

func (s *ViewStore) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() {
		_ = watcher.Close()
		s.mu.Lock()
		s.cache = nil
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			key, isView := strings.CutSuffix(filepath.Base(event.Name), viewExt)
			if !isView {
				continue
			}
			klog.V(4).InfoS("View file changed", "view", key, "op", event.Op.String())
			s.mu.Lock()
			delete(s.cache, key)
			s.evictions++
			s.mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			klog.ErrorS(err, "View watcher failed, clearing cache", "dir", s.dir)
			s.mu.Lock()
			clear(s.cache)
			s.evictions++
			s.mu.Unlock()
		}
	}
}
