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

// Package registry discovers dictionary packages and keeps the set of loaded
// dictionaries.
//
// Every loaded dictionary is given a process unique id and a range of slots
// in the shared cache. Both come from watermarks that only move forward, so
// neither ids nor cache slots are reused by later reloads.
package registry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/youginil/beluga/internal/cache"
	"github.com/youginil/beluga/internal/catalog"
	"github.com/youginil/beluga/internal/engine"
)

// DefaultMarker is the extension of the file marking a package directory.
const DefaultMarker = ".ifo"

var (
	// ErrDiscovery is returned when the dictionary directory cannot be
	// listed. Nothing is changed.
	ErrDiscovery = errors.New("discovering dictionaries")

	// ErrPersist is returned when the catalog cannot be saved. The
	// previously loaded dictionaries stay live.
	ErrPersist = errors.New("persisting catalog")
)

// Options configures a Registry.
type Options struct {
	// Engine opens packages. Required.
	Engine engine.Engine

	// Cache is shared by all loaded dictionaries. Required.
	Cache *cache.Shared

	// Catalog receives the result of every reload. Optional.
	Catalog *catalog.Catalog

	// Marker is the marker file extension. Defaults to DefaultMarker.
	Marker string

	// Logger defaults to a logger discarding everything.
	Logger *slog.Logger
}

// Registry holds the loaded dictionaries.
type Registry struct {
	engine  engine.Engine
	cache   *cache.Shared
	catalog *catalog.Catalog
	marker  string
	logger  *slog.Logger

	// reloadMu serializes reloads.
	reloadMu sync.Mutex

	mu     sync.RWMutex
	dicts  map[uint32]*Dictionary
	nextID uint32
	nextNS uint64
}

// New returns an empty Registry.
func New(opts *Options) *Registry {
	r := &Registry{
		engine:  opts.Engine,
		cache:   opts.Cache,
		catalog: opts.Catalog,
		marker:  opts.Marker,
		logger:  opts.Logger,
		dicts:   map[uint32]*Dictionary{},
		nextID:  1,
	}
	if r.marker == "" {
		r.marker = DefaultMarker
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

type candidate struct {
	name   string
	marker string
}

// Reload replaces the loaded dictionaries with the packages found in dir.
// Packages that fail to open are logged and skipped.
func (r *Registry) Reload(ctx context.Context, dir string) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	candidates, err := r.discover(dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	r.mu.RLock()
	nextID, nextNS := r.nextID, r.nextNS
	r.mu.RUnlock()

	next := make(map[uint32]*Dictionary, len(candidates))
	found := make([]catalog.Discovered, 0, len(candidates))
	discard := func() {
		for _, d := range next {
			if err := d.close(); err != nil {
				r.logger.Warn("Failed to close dictionary", "path", d.path, "error", err)
			}
			r.cache.Purge(d.r)
		}
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			r.commitWatermarks(nextID, nextNS)
			discard()
			return err
		}

		h, end, err := r.engine.Open(ctx, c.marker, nextNS)
		if err != nil {
			r.logger.Warn("Failed to load dictionary", "path", c.marker, "error", err)
			continue
		}
		if end < nextNS {
			_ = h.Close()
			r.logger.Warn("Failed to load dictionary", "path", c.marker, "error",
				fmt.Errorf("namespace end %d before start %d", end, nextNS))
			continue
		}

		d := newDictionary(nextID, c.name, c.marker, cache.Range{Start: nextNS, End: end}, h, r.cache)
		next[d.id] = d
		found = append(found, catalog.Discovered{ID: d.id, Name: d.name})
		r.logger.Debug("Loaded dictionary", "id", d.id, "name", d.name, "range", d.r.String())
		nextID++
		nextNS = end
	}

	// Ids and slots handed out above are never reused, even if the catalog
	// cannot be saved.
	r.commitWatermarks(nextID, nextNS)

	if r.catalog != nil {
		if err := r.catalog.Apply(ctx, dir, found); err != nil {
			discard()
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}

	r.mu.Lock()
	prev := r.dicts
	r.dicts = next
	r.mu.Unlock()

	for _, d := range prev {
		if err := d.close(); err != nil {
			r.logger.Warn("Failed to close dictionary", "path", d.path, "error", err)
		}
		r.cache.Purge(d.r)
	}

	r.logger.Info("Loaded dictionaries", "dir", dir, "count", len(next), "candidates", len(candidates))
	return nil
}

func (r *Registry) commitWatermarks(nextID uint32, nextNS uint64) {
	r.mu.Lock()
	r.nextID, r.nextNS = nextID, nextNS
	r.mu.Unlock()
}

// discover lists the package directories in dir in name order.
func (r *Registry) discover(dir string) ([]candidate, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		files, err := os.ReadDir(sub)
		if err != nil {
			r.logger.Warn("Failed to read package directory", "path", sub, "error", err)
			continue
		}
		i := slices.IndexFunc(files, func(f os.DirEntry) bool {
			return !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), r.marker)
		})
		if i < 0 {
			continue
		}
		candidates = append(candidates, candidate{
			name:   e.Name(),
			marker: filepath.Join(sub, files[i].Name()),
		})
	}
	return candidates, nil
}

// Lookup returns the live dictionary with the given id.
func (r *Registry) Lookup(id uint32) (*Dictionary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dicts[id]
	return d, ok
}

// Dictionaries returns the live dictionaries ordered by id.
func (r *Registry) Dictionaries() []*Dictionary {
	r.mu.RLock()
	dicts := make([]*Dictionary, 0, len(r.dicts))
	for _, d := range r.dicts {
		dicts = append(dicts, d)
	}
	r.mu.RUnlock()

	slices.SortFunc(dicts, func(a, b *Dictionary) int {
		return cmp.Compare(a.id, b.id)
	})
	return dicts
}

// Watermarks returns the next id and the next cache slot to be assigned.
func (r *Registry) Watermarks() (uint32, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID, r.nextNS
}

// Close unloads every dictionary.
func (r *Registry) Close() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.mu.Lock()
	prev := r.dicts
	r.dicts = map[uint32]*Dictionary{}
	r.mu.Unlock()

	var errs []error
	for _, d := range prev {
		if err := d.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %q: %w", d.name, err))
		}
		r.cache.Purge(d.r)
	}
	return errors.Join(errs...)
}
