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

package testutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/youginil/beluga/internal/engine"
)

// ErrCorrupt is returned by FakeEngine for packages marked Corrupt.
var ErrCorrupt = errors.New("corrupt package")

// FakePackage describes a package opened by FakeEngine.
type FakePackage struct {
	// Slots is the number of cache slots the package reserves.
	Slots uint64

	// Corrupt makes Open fail.
	Corrupt bool

	// Entries maps queries to rendered content.
	Entries map[string]string

	// Resources maps resource names to their contents.
	Resources map[string][]byte

	CSS string
	JS  string

	// Gate, if not nil, blocks every Search until a value is received or
	// the context is done.
	Gate chan struct{}
}

// FakeEngine is an engine.Engine serving FakePackages keyed by package
// directory name.
type FakeEngine struct {
	mu       sync.Mutex
	packages map[string]*FakePackage
	handles  []*FakeHandle
}

// NewFakeEngine returns an engine serving packages.
func NewFakeEngine(packages map[string]*FakePackage) *FakeEngine {
	return &FakeEngine{packages: packages}
}

// Set adds or replaces a package.
func (e *FakeEngine) Set(name string, p *FakePackage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.packages[name] = p
}

// Handles returns every handle opened so far.
func (e *FakeEngine) Handles() []*FakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.handles)
}

// Open implements [engine.Engine.Open].
func (e *FakeEngine) Open(_ context.Context, path string, start uint64) (engine.Handle, uint64, error) {
	name := filepath.Base(filepath.Dir(path))

	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.packages[name]
	if !ok {
		return nil, start, fmt.Errorf("%w: %q", os.ErrNotExist, name)
	}
	if p.Corrupt {
		return nil, start, fmt.Errorf("%w: %q", ErrCorrupt, name)
	}

	keys := make([]string, 0, len(p.Entries)+len(p.Resources))
	for k := range p.Entries {
		keys = append(keys, "e:"+k)
	}
	for k := range p.Resources {
		keys = append(keys, "r:"+k)
	}
	slices.Sort(keys)
	if uint64(len(keys)) > p.Slots {
		return nil, start, fmt.Errorf("package %q needs %d slots, has %d", name, len(keys), p.Slots)
	}

	h := &FakeHandle{Name: name, Start: start, pkg: p, keys: keys}
	e.handles = append(e.handles, h)
	return h, start + p.Slots, nil
}

// FakeHandle is the handle returned by FakeEngine.
type FakeHandle struct {
	Name  string
	Start uint64

	pkg  *FakePackage
	keys []string

	active    atomic.Int32
	maxActive atomic.Int32
	closed    atomic.Bool
	misuse    atomic.Bool
}

// MaxActive returns the largest number of calls that ran at the same time.
func (h *FakeHandle) MaxActive() int32 {
	return h.maxActive.Load()
}

// Active returns the number of calls currently running.
func (h *FakeHandle) Active() int32 {
	return h.active.Load()
}

// Closed reports whether Close was called.
func (h *FakeHandle) Closed() bool {
	return h.closed.Load()
}

// Misused reports whether the handle was called after being closed.
func (h *FakeHandle) Misused() bool {
	return h.misuse.Load()
}

func (h *FakeHandle) enter() func() {
	if h.closed.Load() {
		h.misuse.Store(true)
	}
	n := h.active.Add(1)
	for {
		m := h.maxActive.Load()
		if n <= m || h.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	return func() { h.active.Add(-1) }
}

func (h *FakeHandle) lookup(c engine.Cache, key string, value []byte) []byte {
	i, found := slices.BinarySearch(h.keys, key)
	if !found {
		return value
	}
	if b, ok := c.Get(uint64(i)); ok {
		return b
	}
	c.Put(uint64(i), value)
	return value
}

// Search implements [engine.Handle.Search].
func (h *FakeHandle) Search(ctx context.Context, c engine.Cache, query string, _ engine.SearchOptions) (string, error) {
	defer h.enter()()
	if h.pkg.Gate != nil {
		select {
		case <-h.pkg.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	content, ok := h.pkg.Entries[query]
	if !ok {
		return "", engine.ErrNotFound
	}
	return string(h.lookup(c, "e:"+query, []byte(content))), nil
}

// Suggest implements [engine.Handle.Suggest].
func (h *FakeHandle) Suggest(_ context.Context, query string, opts engine.SuggestOptions) ([]string, error) {
	defer h.enter()()
	var words []string
	for k := range h.pkg.Entries {
		if len(k) >= len(query) && k[:len(query)] == query {
			words = append(words, k)
		}
	}
	slices.Sort(words)
	if opts.PrefixLimit > 0 && len(words) > opts.PrefixLimit {
		words = words[:opts.PrefixLimit]
	}
	return words, nil
}

// Resource implements [engine.Handle.Resource].
func (h *FakeHandle) Resource(_ context.Context, c engine.Cache, name string) ([]byte, error) {
	defer h.enter()()
	b, ok := h.pkg.Resources[name]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return h.lookup(c, "r:"+name, b), nil
}

// StyleScript implements [engine.Handle.StyleScript].
func (h *FakeHandle) StyleScript() (string, string, error) {
	defer h.enter()()
	return h.pkg.CSS, h.pkg.JS, nil
}

// Close implements [engine.Handle.Close].
func (h *FakeHandle) Close() error {
	h.closed.Store(true)
	return nil
}

// MakeMarker creates the package directory root/name holding an empty
// marker file and returns the marker's path.
func MakeMarker(t *testing.T, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name+".ifo")
	writeFile(t, path, nil)
	return path
}
