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

package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		a, b     Range
		overlaps bool
	}{
		{
			name:     "adjacent",
			a:        Range{Start: 0, End: 500},
			b:        Range{Start: 500, End: 800},
			overlaps: false,
		},
		{
			name:     "overlapping",
			a:        Range{Start: 0, End: 501},
			b:        Range{Start: 500, End: 800},
			overlaps: true,
		},
		{
			name:     "empty",
			a:        Range{Start: 10, End: 10},
			b:        Range{Start: 0, End: 800},
			overlaps: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if got := test.a.Overlaps(test.b); got != test.overlaps {
				t.Fatalf("%v.Overlaps(%v): want %v, got %v", test.a, test.b, test.overlaps, got)
			}
			if got := test.b.Overlaps(test.a); got != test.overlaps {
				t.Fatalf("%v.Overlaps(%v): want %v, got %v", test.b, test.a, test.overlaps, got)
			}
		})
	}
}

func TestScope_isolation(t *testing.T) {
	t.Parallel()

	c := New(1024)
	en := c.Scope(Range{Start: 0, End: 500})
	fr := c.Scope(Range{Start: 500, End: 800})

	if !en.Put(0, []byte("en:0")) {
		t.Fatal("en.Put(0): not stored")
	}
	if !fr.Put(0, []byte("fr:0")) {
		t.Fatal("fr.Put(0): not stored")
	}

	got, ok := en.Get(0)
	if !ok {
		t.Fatal("en.Get(0): missing")
	}
	if diff := cmp.Diff("en:0", string(got)); diff != "" {
		t.Fatalf("en.Get(0) (-want, +got):\n%s", diff)
	}
	got, ok = fr.Get(0)
	if !ok {
		t.Fatal("fr.Get(0): missing")
	}
	if diff := cmp.Diff("fr:0", string(got)); diff != "" {
		t.Fatalf("fr.Get(0) (-want, +got):\n%s", diff)
	}

	// Keys past the end of the range never reach the neighbour.
	if fr.Put(300, []byte("overflow")) {
		t.Fatal("fr.Put(300): stored outside range")
	}
	if _, ok := en.Get(500); ok {
		t.Fatal("en.Get(500): read outside range")
	}
	if got, _ := c.Get(500); string(got) != "fr:0" {
		t.Fatalf("slot 500: want %q, got %q", "fr:0", got)
	}
}

func TestShared_Put(t *testing.T) {
	t.Parallel()

	c := New(8)
	if !c.Put(1, []byte("aaaa")) {
		t.Fatal("Put(1): not stored")
	}
	if !c.Put(2, []byte("bbbb")) {
		t.Fatal("Put(2): not stored")
	}
	// Reference 1 so the clock passes over it.
	if _, ok := c.Get(1); !ok {
		t.Fatal("Get(1): missing")
	}
	if !c.Put(3, []byte("cccc")) {
		t.Fatal("Put(3): not stored")
	}

	if _, ok := c.Get(2); ok {
		t.Fatal("Get(2): expected eviction")
	}
	for _, slot := range []uint64{1, 3} {
		if _, ok := c.Get(slot); !ok {
			t.Fatalf("Get(%d): missing", slot)
		}
	}

	if c.Put(4, []byte("too large for cache")) {
		t.Fatal("Put(4): stored value larger than capacity")
	}

	stats := c.Stats()
	if stats.Bytes > stats.Capacity {
		t.Fatalf("Bytes %d exceeds capacity %d", stats.Bytes, stats.Capacity)
	}
	if want, got := 2, stats.Entries; want != got {
		t.Fatalf("Entries: want %d, got %d", want, got)
	}
}

func TestShared_replace(t *testing.T) {
	t.Parallel()

	c := New(16)
	c.Put(1, []byte("aaaa"))
	c.Put(1, []byte("aaaaaaaa"))

	if diff := cmp.Diff(Stats{Entries: 1, Bytes: 8, Capacity: 16}, c.Stats()); diff != "" {
		t.Fatalf("Stats (-want, +got):\n%s", diff)
	}
}

func TestShared_Resize(t *testing.T) {
	t.Parallel()

	c := New(100)
	for i := range uint64(10) {
		c.Put(i, []byte("0123456789"))
	}
	if want, got := int64(100), c.Stats().Bytes; want != got {
		t.Fatalf("Bytes: want %d, got %d", want, got)
	}

	c.Resize(35)
	stats := c.Stats()
	if stats.Bytes > 35 {
		t.Fatalf("Bytes after resize: %d > 35", stats.Bytes)
	}
	if want, got := 3, stats.Entries; want != got {
		t.Fatalf("Entries after resize: want %d, got %d", want, got)
	}

	c.Resize(0)
	if diff := cmp.Diff(Stats{Capacity: 0}, c.Stats()); diff != "" {
		t.Fatalf("Stats after resize to zero (-want, +got):\n%s", diff)
	}
}

func TestShared_Purge(t *testing.T) {
	t.Parallel()

	c := New(1024)
	for i := range uint64(10) {
		c.Put(i, []byte{byte(i)})
	}

	if want, got := 5, c.Purge(Range{Start: 3, End: 8}); want != got {
		t.Fatalf("Purge: want %d, got %d", want, got)
	}

	var kept []uint64
	for i := range uint64(10) {
		if _, ok := c.Get(i); ok {
			kept = append(kept, i)
		}
	}
	if diff := cmp.Diff([]uint64{0, 1, 2, 8, 9}, kept); diff != "" {
		t.Fatalf("kept slots (-want, +got):\n%s", diff)
	}
}

func TestShared_concurrent(t *testing.T) {
	t.Parallel()

	c := New(4096)
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := c.Scope(Range{Start: uint64(w) * 100, End: uint64(w+1) * 100})
			for i := range uint64(100) {
				want := fmt.Sprintf("%d:%d", w, i)
				s.Put(i, []byte(want))
				if got, ok := s.Get(i); ok && string(got) != want {
					t.Errorf("worker %d key %d: want %q, got %q", w, i, want, got)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 50 {
			c.Resize(2048)
			c.Resize(4096)
		}
	}()
	wg.Wait()

	if stats := c.Stats(); stats.Bytes > stats.Capacity {
		t.Fatalf("Bytes %d exceeds capacity %d", stats.Bytes, stats.Capacity)
	}
}
