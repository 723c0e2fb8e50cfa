// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists catalog snapshots.
type Store interface {
	// Load returns the saved snapshot. A store that was never saved returns
	// an empty snapshot.
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the saved snapshot.
	Save(ctx context.Context, s *Snapshot) error

	Close() error
}

// OpenStore opens the store at path. Paths ending in .db, .sqlite or
// .sqlite3 open a SQLite database. Any other path is a JSON file.
func OpenStore(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewFileStore(path), nil
	}
}

// FileStore stores the catalog in a JSON settings file. Keys other than the
// catalog's own are preserved across saves.
type FileStore struct {
	path string

	mu    sync.Mutex
	extra map[string]json.RawMessage
}

// NewFileStore returns a store for the JSON file at path. The file is
// created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the path of the settings file.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements [Store.Load].
func (s *FileStore) Load(_ context.Context) (*Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", s.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", s.path, err)
	}
	snap := &Snapshot{}
	if err := json.Unmarshal(b, snap); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", s.path, err)
	}

	delete(raw, "dict_dir")
	delete(raw, "dicts")
	s.mu.Lock()
	s.extra = raw
	s.mu.Unlock()
	return snap, nil
}

// Save implements [Store.Save]. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	out := make(map[string]any, len(s.extra)+2)
	for k, v := range s.extra {
		out[k] = v
	}
	s.mu.Unlock()
	dicts := snap.Dicts
	if dicts == nil {
		dicts = []Entry{}
	}
	out["dict_dir"] = snap.DictDir
	out["dicts"] = dicts

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %q: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("syncing %q: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %q: %w", s.path, err)
	}
	return nil
}

// Close implements [Store.Close].
func (s *FileStore) Close() error {
	return nil
}
