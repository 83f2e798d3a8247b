// Package viewstore persists compiled views as KQL files, one file per view.
//
// A view named reports.texas lives in <dir>/reports_texas.kql. Writers take a
// <name>.lock file next to it, so several processes may share one directory.
package viewstore

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

type ViewStore struct {
	dir string

	mu sync.RWMutex
	// cache holds view bodies by file key while Watch runs. It is nil otherwise,
	// and every read goes to disk.
	cache map[string]string
	// evictions counts cache evictions. A read that raced with one is not cached.
	evictions uint64
}

type ViewOptions struct {
	OrReplace   bool
	IfNotExists bool
}

// NewViewStore returns nil for an empty dir. A nil store answers every call
// with an error saying views are not configured.
func NewViewStore(dir string) (*ViewStore, error) {
	dir = strings.TrimSpace(dir)
	switch {
	case dir == "":
		return nil, nil
	case strings.ContainsRune(dir, 0):
		return nil, errors.New("viewstore: invalid views directory")
	}
	return &ViewStore{dir: filepath.Clean(dir)}, nil
}

// Save stores query as the body of the view and returns its file path.
func (s *ViewStore) Save(parts []string, query string, opts ViewOptions) (string, error) {
	if s == nil {
		return "", disabled("CREATE VIEW")
	}
	name, err := parseName(parts)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("viewstore: ensure views directory: %w", err)
	}
	release, err := s.acquire(name)
	if err != nil {
		return "", err
	}
	defer release()

	path := s.path(name.key)
	exists, err := viewExists(path, name.display)
	if err != nil {
		return "", err
	}
	if exists {
		switch {
		case opts.IfNotExists:
			return path, nil
		case !opts.OrReplace:
			return "", &StoreError{Code: http.StatusConflict, Message: fmt.Sprintf("viewstore: view %s already exists", name.display)}
		}
	}

	if !strings.HasSuffix(query, "\n") {
		query += "\n"
	}
	if err := writeFileAtomic(s.dir, name.key, query); err != nil {
		return "", fmt.Errorf("viewstore: write view %s: %w", name.display, err)
	}
	if s.cache != nil {
		s.cache[name.key] = strings.TrimRight(query, "\r\n")
	}
	klog.V(2).InfoS("Saved view", "view", name.display, "path", path)
	return path, nil
}

// Load returns the KQL body of a view and its display name. found is false when the view does not exist.
func (s *ViewStore) Load(parts []string) (query string, displayName string, found bool, err error) {
	if s == nil {
		return "", strings.Join(parts, "."), false, disabled("reading a view")
	}
	name, err := parseName(parts)
	if err != nil {
		return "", strings.Join(parts, "."), false, err
	}
	query, err = s.body(name.key, name.display)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", name.display, false, nil
	case err != nil:
		return "", name.display, false, err
	}
	return query, name.display, true, nil
}

// body reads a view through the cache when one is active.
func (s *ViewStore) body(key, display string) (string, error) {
	s.mu.RLock()
	query, ok := s.cache[key]
	caching, seen := s.cache != nil, s.evictions
	s.mu.RUnlock()
	if ok {
		return query, nil
	}

	query, err := readView(s.path(key), display)
	if err != nil || !caching {
		return query, err
	}
	s.mu.Lock()
	if s.cache != nil && s.evictions == seen {
		s.cache[key] = query
	}
	s.mu.Unlock()
	return query, nil
}

// ListViews returns the file keys of all stored views, sorted.
func (s *ViewStore) ListViews() ([]string, error) {
	if s == nil {
		return nil, disabled("SHOW VIEWS")
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("viewstore: list views: %w", err)
	}
	var keys []string
	for _, entry := range entries {
		key, ok := strings.CutSuffix(entry.Name(), viewExt)
		if ok && key != "" && !entry.IsDir() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ViewDefinitions maps every view key to its KQL body.
func (s *ViewStore) ViewDefinitions() (map[string]string, error) {
	keys, err := s.ListViews()
	if err != nil {
		return nil, err
	}
	defs := make(map[string]string, len(keys))
	for _, key := range keys {
		query, err := s.body(key, key)
		if err != nil {
			return nil, err
		}
		defs[key] = query
	}
	return defs, nil
}

// Remove deletes a view. A missing view is an error unless ifExists is set.
func (s *ViewStore) Remove(parts []string, ifExists bool) error {
	if s == nil {
		return disabled("DROP VIEW")
	}
	name, err := parseName(parts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(name.key)
	exists, err := viewExists(path, name.display)
	switch {
	case err != nil:
		return err
	case !exists && ifExists:
		return nil
	case !exists:
		return &StoreError{Code: http.StatusNotFound, Message: fmt.Sprintf("viewstore: view %s does not exist", name.display)}
	}

	release, err := s.acquire(name)
	if err != nil {
		return err
	}
	defer release()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("viewstore: remove view %s: %w", name.display, err)
	}
	delete(s.cache, name.key)
	klog.V(2).InfoS("Removed view", "view", name.display)
	return nil
}

func (s *ViewStore) path(key string) string {
	return filepath.Join(s.dir, key+viewExt)
}

func disabled(op string) error {
	return &StoreError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf("viewstore: %s requires configured views directory", op),
	}
}
