package viewstore

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"k8s.io/klog/v2"
)

const viewExt = ".kql"

// viewName is a validated view name. key is the lower-cased file stem and
// display the dotted name as written.
type viewName struct {
	key     string
	display string
}

func parseName(parts []string) (viewName, error) {
	display := strings.Join(parts, ".")
	if len(parts) == 0 {
		return viewName{}, badName("viewstore: view name is missing")
	}
	stems := make([]string, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return viewName{}, badName("viewstore: view name contains empty part")
		}
		if idx := strings.IndexFunc(part, unsafeRune); idx >= 0 {
			r := []rune(part[idx:])[0]
			return viewName{}, badName(fmt.Sprintf("viewstore: invalid character %q in view name %q", r, part))
		}
		stems[i] = strings.ToLower(part)
	}
	return viewName{key: strings.Join(stems, "_"), display: display}, nil
}

func unsafeRune(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
}

func badName(msg string) error {
	return &StoreError{Code: http.StatusBadRequest, Message: msg}
}

// acquire creates the lock file of a view. The caller must run the returned release.
func (s *ViewStore) acquire(name viewName) (release func(), err error) {
	lockPath := filepath.Join(s.dir, name.key+".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		msg := fmt.Sprintf("viewstore: create lock for view %s: %v", name.display, err)
		if errors.Is(err, fs.ErrExist) {
			msg = fmt.Sprintf("viewstore: view %s is locked", name.display)
		}
		return nil, &StoreError{Code: http.StatusLocked, Message: msg, Err: err}
	}
	return func() {
		if err := f.Close(); err != nil {
			klog.ErrorS(err, "Failed to close view lock file", "path", lockPath)
		}
		if err := os.Remove(lockPath); err != nil {
			klog.ErrorS(err, "Failed to remove view lock file", "path", lockPath)
		}
	}, nil
}

// viewExists reports whether path holds a view file.
func viewExists(path, display string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("viewstore: stat view %s: %w", display, err)
	case info.IsDir():
		return false, fmt.Errorf("viewstore: expected file for view %s but found directory", display)
	}
	return true, nil
}

// readView returns the body at path. A missing file yields an error matching fs.ErrNotExist.
func readView(path, display string) (string, error) {
	exists, err := viewExists(path, display)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fs.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("viewstore: read view %s: %w", display, err)
	}
	query := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("viewstore: view %s is empty", display)
	}
	return query, nil
}

// writeFileAtomic replaces dir/key.kql through a temporary file and a rename.
func writeFileAtomic(dir, key, body string) error {
	tmp, err := os.CreateTemp(dir, key+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, key+viewExt))
}
