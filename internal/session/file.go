package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mesh-intelligence/todos/pkg/types"
)

const (
	lockTimeout    = 5 * time.Second
	lockRetryDelay = 50 * time.Millisecond
)

// File is SessionStorage persisted as one JSON object per session ID under
// a directory, so separate CLI invocations of the same session share it.
// Every access holds a file lock on <id>.lock.
type File struct {
	path        string
	lockPath    string
	lockTimeout time.Duration
}

// NewFile returns file-backed storage for sessionID under dir. The
// directory is created if missing.
func NewFile(dir, sessionID string) (*File, error) {
	if sessionID == "" || filepath.Base(sessionID) != sessionID {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &File{
		path:        filepath.Join(dir, sessionID+".json"),
		lockPath:    filepath.Join(dir, sessionID+".lock"),
		lockTimeout: lockTimeout,
	}, nil
}

// Path returns the JSON file holding the session items.
func (f *File) Path() string {
	return f.path
}

// SetItem implements types.SessionStorage.
func (f *File) SetItem(key, value string) error {
	return f.update(func(items map[string]string) {
		items[key] = value
	})
}

// GetItem implements types.SessionStorage.
func (f *File) GetItem(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := f.withLock(false, func() error {
		items, err := f.read()
		if err != nil {
			return err
		}
		value, found = items[key]
		return nil
	})
	return value, found, err
}

// RemoveItem implements types.SessionStorage.
func (f *File) RemoveItem(key string) error {
	return f.update(func(items map[string]string) {
		delete(items, key)
	})
}

// Destroy deletes the session file. Used when a session ends.
func (f *File) Destroy() error {
	return f.withLock(true, func() error {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (f *File) update(mutate func(map[string]string)) error {
	return f.withLock(true, func() error {
		items, err := f.read()
		if err != nil {
			return err
		}
		mutate(items)
		return f.write(items)
	})
}

func (f *File) withLock(exclusive bool, fn func() error) error {
	fl := flock.New(f.lockPath)
	ctx, cancel := context.WithTimeout(context.Background(), f.lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("lock session %s: %w", f.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", types.ErrSessionLocked, f.lockPath)
	}
	defer fl.Unlock()

	return fn()
}

func (f *File) read() (map[string]string, error) {
	items := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return items, nil
}

func (f *File) write(items map[string]string) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}
