package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mohsinsiddi/w3market/internal/errs"
)

// ErrKeyNotFound is returned by Get when the key has never been written.
var ErrKeyNotFound = errs.New(errs.KindStorage, "key not found")

// errCorrupt marks a state file that exists but does not parse.
var errCorrupt = errors.New("corrupt state file")

// Local is a small string key/value store persisted as one JSON object with
// 0600 permissions. Every call re-reads the file so separate processes see
// each other's writes.
type Local struct {
	mu   sync.Mutex
	path string
}

// NewLocal returns a store backed by the file at path. The file and its
// directory are created on first write.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

// Path returns the backing file.
func (l *Local) Path() string { return l.path }

// Get returns the value stored under key.
func (l *Local) Get(key string) Result[string] {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.read()
	if err != nil {
		return Err[string](err)
	}
	v, ok := m[key]
	if !ok {
		return Err[string](ErrKeyNotFound)
	}
	return Ok(v)
}

// Set stores value under key.
func (l *Local) Set(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.readForWrite()
	if err != nil {
		return err
	}
	m[key] = value
	return l.write(m)
}

// Remove deletes key. Removing a missing key is not an error.
func (l *Local) Remove(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, err := l.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := m[key]; !ok {
		return nil
	}
	delete(m, key)
	return l.write(m)
}

// read returns an empty map (never nil) when the file does not exist.
func (l *Local) read() (map[string]string, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, "reading "+l.path, err)
	}
	m := make(map[string]string)
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.KindStorage, "parsing "+l.path, fmt.Errorf("%w: %v", errCorrupt, err))
	}
	return m, nil
}

// readForWrite is read for callers about to rewrite the file. A corrupt file
// starts over empty; any other read failure is returned so the existing keys
// are not lost.
func (l *Local) readForWrite() (map[string]string, error) {
	m, err := l.read()
	if errors.Is(err, errCorrupt) {
		return make(map[string]string), nil
	}
	return m, err
}

func (l *Local) write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return errs.Wrap(errs.KindStorage, "creating state dir", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		return errs.Wrap(errs.KindStorage, "writing "+l.path, err)
	}
	return nil
}
