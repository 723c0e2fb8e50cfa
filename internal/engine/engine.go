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

// Package engine defines the capabilities the dictionary registry and content
// server consume from a dictionary format implementation.
//
// An Engine opens a package given the path of its marker file and the first
// free slot of the shared cache's key space. It reports how far it advanced
// that watermark, i.e. how many cache slots the package reserves. A Handle
// only ever addresses the cache through a Cache view whose keys are local to
// its reserved range.
package engine

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a lookup produces no data. It is a normal
// outcome and not a fault.
var ErrNotFound = errors.New("not found")

// Cache is a view of the shared cache restricted to one handle's namespace.
// Keys are local: 0 is the first slot reserved for the handle.
type Cache interface {
	// Get returns the cached value for key. The returned slice must not be
	// modified.
	Get(key uint64) ([]byte, bool)

	// Put stores value under key. It returns false if the value was not
	// stored, for example because key lies outside the namespace or the
	// value is larger than the cache.
	Put(key uint64, value []byte) bool
}

// SearchOptions configures Handle.Search.
type SearchOptions struct {
	// MaxEntries limits the number of matching entries rendered. Zero means
	// no limit.
	MaxEntries int
}

// SuggestOptions configures Handle.Suggest.
type SuggestOptions struct {
	// PrefixLimit is the maximum number of headwords starting with the query.
	PrefixLimit int

	// PhraseLimit is the maximum number of headwords containing the query
	// elsewhere.
	PhraseLimit int
}

// Engine opens dictionary packages.
type Engine interface {
	// Open opens the package whose marker file is at path. start is the
	// first cache slot available to the package. Open returns the handle and
	// the end of the range it reserved; the handle owns [start, end).
	Open(ctx context.Context, path string, start uint64) (Handle, uint64, error)
}

// Handle is an opened package. Handles are not safe for concurrent use; the
// caller serializes access.
type Handle interface {
	// Search renders the content for query. It returns ErrNotFound if
	// nothing matches.
	Search(ctx context.Context, c Cache, query string, opts SearchOptions) (string, error)

	// Suggest returns headwords related to query.
	Suggest(ctx context.Context, query string, opts SuggestOptions) ([]string, error)

	// Resource returns the named binary resource. It returns ErrNotFound if
	// the package has no such resource.
	Resource(ctx context.Context, c Cache, name string) ([]byte, error)

	// StyleScript returns the package's style sheet and script fragments.
	StyleScript() (css, js string, err error)

	// Close releases the package's files.
	Close() error
}
