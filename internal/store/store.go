// Package store implements the persisted session store: a small file-backed
// key/value blob store that survives process restarts. It holds the raw
// login response and the last-seen subscriptions snapshot, and is cleared as
// a unit when the session ends.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Keys used by the session gateway. The stored values are raw JSON exactly
// as received from the server.
const (
	KeyCurrentUser        = "current_user"
	KeySubscribedServices = "subscribed_services"
)

// Store is a file-backed blob store. All keys live in a single JSON document
// so a teardown can clear everything atomically by removing one file.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a store persisting to the given file path. The file and its
// directory are created lazily on first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Set stores raw JSON under the given key.
func (s *Store) Set(key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("unable to read session store: %w", err)
		}
		doc = []byte("{}")
	}

	doc, err = sjson.SetRawBytes(doc, key, raw)
	if err != nil {
		return fmt.Errorf("unable to update session store: %w", err)
	}
	return s.write(doc)
}

// Get returns the raw JSON stored under the key. The second return value is
// false when the key is absent or the store file does not exist.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(doc, key)
	if !res.Exists() {
		return nil, false
	}
	return []byte(res.Raw), true
}

// Delete removes a single key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read session store: %w", err)
	}
	doc, err = sjson.DeleteBytes(doc, key)
	if err != nil {
		return fmt.Errorf("unable to update session store: %w", err)
	}
	return s.write(doc)
}

// Clear removes every key. This is the single authoritative clearing point
// used by both logout and forced teardown.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to clear session store: %w", err)
	}
	return nil
}

// Empty reports whether the store holds no data at all.
func (s *Store) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := os.ReadFile(s.path)
	if err != nil {
		return true
	}
	return len(gjson.ParseBytes(doc).Map()) == 0
}

// write replaces the store file via a temp file and rename so a crash never
// leaves a half-written document behind.
func (s *Store) write(doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), os.ModePerm); err != nil {
		return fmt.Errorf("unable to create session store directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, doc, os.FileMode(0600)); err != nil {
		return fmt.Errorf("unable to write session store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("unable to replace session store: %w", err)
	}
	return nil
}
