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

package server

import (
	"container/list"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// handleStatic serves a file from the package directory of the dictionary
// named by the cookie. The directory is found through the catalog so files
// remain reachable while a dictionary fails to load.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	rel, err := staticPath(r.URL.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := cookieID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e, ok := s.catalog.Lookup(id)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: dictionary %d", errNotFound, id))
		return
	}
	root := filepath.Join(s.catalog.Dir(), e.Name)
	key := root + "\x00" + rel

	if b, ok := s.assets.get(key); ok {
		writeBytes(w, r, contentType(rel, b), b)
		return
	}

	b, err := readRegular(root, rel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.assets.put(key, b)
	writeBytes(w, r, contentType(rel, b), b)
}

// staticPath validates a request path and returns it relative to the
// package directory. Paths with a ".." segment are rejected.
func staticPath(p string) (string, error) {
	rel := strings.TrimPrefix(p, "/")
	for _, seg := range strings.FieldsFunc(rel, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", badRequest("invalid path")
		}
	}
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", fmt.Errorf("%w: %q", errNotFound, p)
	}
	return filepath.FromSlash(rel), nil
}

// readRegular reads the regular file rel under root. Symbolic links leading
// outside root are refused.
func readRegular(root, rel string) ([]byte, error) {
	f, err := os.OpenInRoot(root, rel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errNotFound, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", rel, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q is not a regular file", errNotFound, rel)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", rel, err)
	}
	return b, nil
}

type asset struct {
	key  string
	data []byte
}

// assetCache is an LRU cache of small static files bounded by entry count
// and total bytes.
type assetCache struct {
	maxEntries int
	maxBytes   int64
	maxSize    int64

	mu    sync.Mutex
	size  int64
	ll    *list.List
	items map[string]*list.Element
}

func newAssetCache(maxEntries int, maxBytes, maxSize int64) *assetCache {
	return &assetCache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		maxSize:    maxSize,
		ll:         list.New(),
		items:      map[string]*list.Element{},
	}
}

func (c *assetCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(elem)
	return elem.Value.(*asset).data, true
}

// put caches data unless it is larger than the per file limit.
func (c *assetCache) put(key string, data []byte) bool {
	n := int64(len(data))
	if n > c.maxSize || n > c.maxBytes {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		a := elem.Value.(*asset)
		c.size += n - int64(len(a.data))
		a.data = data
		c.ll.MoveToFront(elem)
	} else {
		c.items[key] = c.ll.PushFront(&asset{key: key, data: data})
		c.size += n
	}
	for c.ll.Len() > c.maxEntries || c.size > c.maxBytes {
		oldest := c.ll.Back()
		a := oldest.Value.(*asset)
		c.ll.Remove(oldest)
		delete(c.items, a.key)
		c.size -= int64(len(a.data))
	}
	return true
}

func (c *assetCache) stats() (int, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len(), c.size
}
