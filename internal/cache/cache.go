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

// Package cache implements the byte-bounded cache shared by all loaded
// dictionaries.
//
// The key space is a single range of uint64 slots. Each dictionary is handed
// a disjoint Range of slots and addresses the cache only through a Scope
// bound to that range, so two dictionaries can never read each other's
// entries.
//
// Eviction uses the CLOCK approximation of LRU. Lookups take the read lock
// and only set an atomic reference bit, so concurrent lookups proceed in
// parallel. Inserts, resizes and purges take the write lock.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
)

// Range is a half-open range of cache slots [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of slots in the range.
func (r Range) Len() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether slot lies in the range.
func (r Range) Contains(slot uint64) bool {
	return r.Start <= slot && slot < r.End
}

// Overlaps reports whether the two ranges share a slot.
func (r Range) Overlaps(o Range) bool {
	return r.Start < o.End && o.Start < r.End && r.Len() > 0 && o.Len() > 0
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Stats is a point in time view of cache usage.
type Stats struct {
	Entries  int
	Bytes    int64
	Capacity int64
	Hits     uint64
	Misses   uint64
}

type entry struct {
	slot  uint64
	value []byte
	ref   atomic.Bool
}

// Shared is a byte-bounded cache keyed by slot. It is safe for concurrent use.
type Shared struct {
	mu       sync.RWMutex
	capacity int64
	size     int64
	entries  map[uint64]*list.Element
	ring     *list.List
	// hand is the next element the clock inspects for eviction.
	hand *list.Element

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New returns a cache holding at most capacity bytes of values.
func New(capacity int64) *Shared {
	if capacity < 0 {
		capacity = 0
	}
	return &Shared{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		ring:     list.New(),
	}
}

// Get returns the value stored at slot.
func (c *Shared) Get(slot uint64) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, ok := c.entries[slot]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	e := elem.Value.(*entry)
	e.ref.Store(true)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value at slot, evicting entries as needed. Values larger than
// the cache capacity are not stored and Put returns false.
func (c *Shared) Put(slot uint64, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(value))
	if n > c.capacity {
		return false
	}

	if elem, ok := c.entries[slot]; ok {
		e := elem.Value.(*entry)
		c.size += n - int64(len(e.value))
		e.value = value
		e.ref.Store(true)
	} else {
		e := &entry{slot: slot, value: value}
		// New entries go just behind the hand so they are inspected last.
		if c.hand == nil {
			c.entries[slot] = c.ring.PushBack(e)
		} else {
			c.entries[slot] = c.ring.InsertBefore(e, c.hand)
		}
		c.size += n
	}
	c.evictLocked(slot)
	return true
}

// Resize changes the capacity, evicting entries until the cache fits. New
// lookups block until the resize completes.
func (c *Shared) Resize(capacity int64) {
	if capacity < 0 {
		capacity = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
	c.evictLocked(^uint64(0))
}

// Purge removes every entry whose slot lies in r and returns how many were
// removed.
func (c *Shared) Purge(r Range) int {
	if r.Len() == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for slot, elem := range c.entries {
		if r.Contains(slot) {
			c.removeLocked(elem)
			n++
		}
	}
	return n
}

// Stats returns current usage.
func (c *Shared) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:  len(c.entries),
		Bytes:    c.size,
		Capacity: c.capacity,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}
}

// Scope returns a view of the cache restricted to r.
func (c *Shared) Scope(r Range) *Scope {
	return &Scope{c: c, r: r}
}

// evictLocked runs the clock until the cache fits its capacity. The entry at
// keep is evicted only if nothing else is left.
func (c *Shared) evictLocked(keep uint64) {
	for c.size > c.capacity && c.ring.Len() > 0 {
		if c.hand == nil {
			c.hand = c.ring.Front()
		}
		e := c.hand.Value.(*entry)
		if e.slot == keep && c.ring.Len() > 1 {
			c.advance()
			continue
		}
		if e.ref.Swap(false) {
			c.advance()
			continue
		}
		c.removeLocked(c.hand)
	}
}

func (c *Shared) advance() {
	c.hand = c.hand.Next()
	if c.hand == nil {
		c.hand = c.ring.Front()
	}
}

func (c *Shared) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	if elem == c.hand {
		c.hand = elem.Next()
	}
	c.ring.Remove(elem)
	delete(c.entries, e.slot)
	c.size -= int64(len(e.value))
}

// Scope is a view of a Shared cache limited to one Range. Keys passed to a
// Scope are offsets from the start of the range. Scope implements
// engine.Cache.
type Scope struct {
	c *Shared
	r Range
}

// Range returns the range the scope is bound to.
func (s *Scope) Range() Range {
	return s.r
}

// Get returns the value at the local key.
func (s *Scope) Get(key uint64) ([]byte, bool) {
	if key >= s.r.Len() {
		return nil, false
	}
	return s.c.Get(s.r.Start + key)
}

// Put stores the value at the local key. Keys outside the range are rejected.
func (s *Scope) Put(key uint64, value []byte) bool {
	if key >= s.r.Len() {
		return false
	}
	return s.c.Put(s.r.Start+key, value)
}
