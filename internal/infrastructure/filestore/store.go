package filestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"shopcms-backend/pkg/logger"
)

// Store persists collections as JSON documents inside a data directory.
// A single RWMutex guards every file, so an Update spanning several
// collections (e.g. discounts + usage) is atomic with respect to other callers
// of the same Store.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// Tx is the handle passed to View / Update callbacks. It must not escape the callback.
// Writes are staged in temp files and only become visible when Update commits,
// so Read inside the same callback still sees the committed state.
type Tx struct {
	store    *Store
	writable bool
	staged   []stagedWrite
}

type stagedWrite struct {
	name   string
	tmp    string
	target string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	logger.Info("[FILESTORE] Using JSON data directory", map[string]interface{}{"dir": dir})
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// View runs fn under a shared lock
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{store: s})
}

// Update runs fn under the exclusive lock. Collections written through tx are
// replaced only when fn returns nil: all of them, or none.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{store: s, writable: true}
	if err := fn(tx); err != nil {
		tx.discard(tx.staged)
		return err
	}
	return tx.commit()
}

// Read decodes collection name into dest. A missing file leaves dest untouched.
func (tx *Tx) Read(name string, dest interface{}) error {
	raw, err := os.ReadFile(tx.store.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// Write stages v as the new content of collection name
func (tx *Tx) Write(name string, v interface{}) error {
	if !tx.writable {
		return fmt.Errorf("write %s: read-only transaction", name)
	}

	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmpName, err := tx.store.writeTemp(name, payload)
	if err != nil {
		return err
	}

	// Ghi lại cùng collection: bản staged sau cùng thắng
	for i := range tx.staged {
		if tx.staged[i].name == name {
			os.Remove(tx.staged[i].tmp)
			tx.staged[i].tmp = tmpName
			return nil
		}
	}
	tx.staged = append(tx.staged, stagedWrite{name: name, tmp: tmpName, target: tx.store.path(name)})
	return nil
}

// commit renames every staged file into place. When a rename fails the
// collections already replaced are restored from their previous content.
func (tx *Tx) commit() error {
	type backup struct {
		target  string
		content []byte
		existed bool
	}
	var done []backup

	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			b := done[i]
			var err error
			if b.existed {
				err = tx.store.replace(b.target, b.content)
			} else {
				err = os.Remove(b.target)
			}
			if err != nil {
				logger.ErrorWithFields("[FILESTORE] Rollback failed", err, map[string]interface{}{"file": b.target})
			}
		}
	}

	for i, w := range tx.staged {
		previous, err := os.ReadFile(w.target)
		existed := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			rollback()
			tx.discard(tx.staged[i:])
			return fmt.Errorf("backup %s: %w", w.name, err)
		}

		if err := os.Rename(w.tmp, w.target); err != nil {
			rollback()
			tx.discard(tx.staged[i:])
			return fmt.Errorf("replace %s: %w", w.name, err)
		}
		done = append(done, backup{target: w.target, content: previous, existed: existed})
	}
	return nil
}

func (tx *Tx) discard(writes []stagedWrite) {
	for _, w := range writes {
		os.Remove(w.tmp)
	}
}

func (s *Store) writeTemp(name string, payload []byte) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return tmpName, nil
}

// replace atomically swaps target's content
func (s *Store) replace(target string, content []byte) error {
	tmpName, err := s.writeTemp(filepath.Base(target), content)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
