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

// Package catalog persists the identity and availability of loaded
// dictionaries across restarts.
//
// Entries are matched by name. Ids are reassigned by every reload while the
// user's availability choice survives as long as the dictionary is still
// present on disk.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknown is returned when a dictionary name is not in the catalog.
var ErrUnknown = errors.New("unknown dictionary")

// Entry is the persisted record of a dictionary.
type Entry struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Discovered is a dictionary found by the latest reload along with the id it
// was assigned.
type Discovered struct {
	ID   uint32
	Name string
}

// Snapshot is the persisted catalog.
type Snapshot struct {
	// DictDir is the directory the entries were discovered in.
	DictDir string  `json:"dict_dir"`
	Dicts   []Entry `json:"dicts"`
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		DictDir: s.DictDir,
		Dicts:   slices.Clone(s.Dicts),
	}
}

// Reconcile merges the dictionaries found by a reload into the previous
// entries. Entries whose name was not found are dropped. Entries found again
// take their new id and keep their availability and relative order. New
// names are appended, available, in discovery order.
func Reconcile(prev []Entry, found []Discovered) []Entry {
	present := make(map[string]bool, len(found))
	for _, d := range found {
		present[d.Name] = true
	}

	result := make([]Entry, 0, len(found))
	pos := make(map[string]int, len(prev))
	for _, e := range prev {
		if !present[e.Name] {
			continue
		}
		if _, dup := pos[e.Name]; dup {
			continue
		}
		pos[e.Name] = len(result)
		result = append(result, e)
	}

	for _, d := range found {
		if i, ok := pos[d.Name]; ok {
			result[i].ID = d.ID
			continue
		}
		pos[d.Name] = len(result)
		result = append(result, Entry{ID: d.ID, Name: d.Name, Available: true})
	}
	return result
}

// Catalog is the in-memory catalog backed by a Store. Reads are served from
// memory. Writes are serialized, start from the stored snapshot so edits made
// by other processes are kept, and reach the store before they are visible.
type Catalog struct {
	store Store

	// wmu serializes writes.
	wmu sync.Mutex

	mu   sync.RWMutex
	snap *Snapshot
	byID map[uint32]int
}

// Open loads the catalog from store.
func Open(ctx context.Context, store Store) (*Catalog, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if snap == nil {
		snap = &Snapshot{}
	}
	c := &Catalog{store: store}
	c.set(snap)
	return c, nil
}

// Dir returns the directory the current entries were discovered in.
func (c *Catalog) Dir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.DictDir
}

// Entries returns a copy of the entries in catalog order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.snap.Dicts)
}

// Lookup returns the entry with the given id.
func (c *Catalog) Lookup(id uint32) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.snap.Dicts[i], true
}

// LookupName returns the entry with the given name.
func (c *Catalog) LookupName(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.snap.Dicts {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Apply reconciles the dictionaries found in dir with the stored catalog and
// persists the result. On error the in-memory catalog is unchanged.
func (c *Catalog) Apply(ctx context.Context, dir string, found []Discovered) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	cur, err := c.latest(ctx)
	if err != nil {
		return err
	}
	return c.commit(ctx, &Snapshot{
		DictDir: dir,
		Dicts:   Reconcile(cur.Dicts, found),
	})
}

// SetAvailable records whether the named dictionary is available to the
// user.
func (c *Catalog) SetAvailable(ctx context.Context, name string, available bool) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	next, err := c.latest(ctx)
	if err != nil {
		return err
	}
	i := slices.IndexFunc(next.Dicts, func(e Entry) bool { return e.Name == name })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if next.Dicts[i].Available == available {
		c.set(next)
		return nil
	}
	next.Dicts[i].Available = available
	return c.commit(ctx, next)
}

// latest returns a copy of the stored snapshot. c.wmu must be held.
func (c *Catalog) latest(ctx context.Context) (*Snapshot, error) {
	snap, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	if snap == nil {
		return &Snapshot{}, nil
	}
	return snap.clone(), nil
}

// commit saves next and makes it visible. c.wmu must be held.
func (c *Catalog) commit(ctx context.Context, next *Snapshot) error {
	if err := c.store.Save(ctx, next.clone()); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	c.set(next)
	return nil
}

func (c *Catalog) set(snap *Snapshot) {
	byID := make(map[uint32]int, len(snap.Dicts))
	for i, e := range snap.Dicts {
		if _, dup := byID[e.ID]; !dup {
			byID[e.ID] = i
		}
	}
	c.mu.Lock()
	c.snap, c.byID = snap, byID
	c.mu.Unlock()
}

// Close closes the underlying store.
func (c *Catalog) Close() error {
	return c.store.Close()
}
