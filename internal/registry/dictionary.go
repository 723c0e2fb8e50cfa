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

package registry

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/youginil/beluga/internal/cache"
	"github.com/youginil/beluga/internal/engine"
)

// ErrClosed is returned by calls on a dictionary that was unloaded.
var ErrClosed = errors.New("dictionary closed")

// Dictionary is a loaded dictionary package. Calls into the underlying
// handle are serialized; calls on different dictionaries run in parallel.
type Dictionary struct {
	id   uint32
	name string
	path string
	r    cache.Range

	handle engine.Handle
	cache  *cache.Scope

	// lock is a one slot semaphore guarding handle and closed.
	lock   chan struct{}
	closed bool
}

func newDictionary(id uint32, name, path string, r cache.Range, h engine.Handle, c *cache.Shared) *Dictionary {
	return &Dictionary{
		id:     id,
		name:   name,
		path:   path,
		r:      r,
		handle: h,
		cache:  c.Scope(r),
		lock:   make(chan struct{}, 1),
	}
}

// ID returns the dictionary id assigned when it was loaded.
func (d *Dictionary) ID() uint32 { return d.id }

// Name returns the package directory name.
func (d *Dictionary) Name() string { return d.name }

// Path returns the path of the package's marker file.
func (d *Dictionary) Path() string { return d.path }

// Dir returns the package directory.
func (d *Dictionary) Dir() string { return filepath.Dir(d.path) }

// Range returns the cache slots reserved for the dictionary.
func (d *Dictionary) Range() cache.Range { return d.r }

// acquire takes the dictionary's lock, giving up when ctx is done.
func (d *Dictionary) acquire(ctx context.Context) error {
	select {
	case d.lock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d.closed {
		d.release()
		return ErrClosed
	}
	return nil
}

func (d *Dictionary) release() {
	<-d.lock
}

// Search renders the content for query.
func (d *Dictionary) Search(ctx context.Context, query string, opts engine.SearchOptions) (string, error) {
	if err := d.acquire(ctx); err != nil {
		return "", err
	}
	defer d.release()
	return d.handle.Search(ctx, d.cache, query, opts)
}

// Suggest returns headwords related to query.
func (d *Dictionary) Suggest(ctx context.Context, query string, opts engine.SuggestOptions) ([]string, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.release()
	return d.handle.Suggest(ctx, query, opts)
}

// Resource returns the named binary resource.
func (d *Dictionary) Resource(ctx context.Context, name string) ([]byte, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.release()
	return d.handle.Resource(ctx, d.cache, name)
}

// StyleScript returns the dictionary's style sheet and script fragments.
func (d *Dictionary) StyleScript(ctx context.Context) (string, string, error) {
	if err := d.acquire(ctx); err != nil {
		return "", "", err
	}
	defer d.release()
	return d.handle.StyleScript()
}

// close waits for the in-flight call, if any, and closes the handle.
func (d *Dictionary) close() error {
	d.lock <- struct{}{}
	defer d.release()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.handle.Close()
}
