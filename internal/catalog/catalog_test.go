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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		prev  []Entry
		found []Discovered
		want  []Entry
	}{
		{
			name:  "first load",
			found: []Discovered{{ID: 1, Name: "en"}, {ID: 2, Name: "fr"}},
			want: []Entry{
				{ID: 1, Name: "en", Available: true},
				{ID: 2, Name: "fr", Available: true},
			},
		},
		{
			name: "availability preserved",
			prev: []Entry{
				{ID: 1, Name: "en", Available: true},
				{ID: 2, Name: "fr", Available: false},
			},
			found: []Discovered{{ID: 3, Name: "en"}, {ID: 4, Name: "fr"}},
			want: []Entry{
				{ID: 3, Name: "en", Available: true},
				{ID: 4, Name: "fr", Available: false},
			},
		},
		{
			name: "drop and append",
			prev: []Entry{
				{ID: 1, Name: "en", Available: true},
				{ID: 2, Name: "fr", Available: false},
				{ID: 3, Name: "jp", Available: false},
			},
			found: []Discovered{{ID: 4, Name: "de"}, {ID: 5, Name: "jp"}},
			want: []Entry{
				{ID: 5, Name: "jp", Available: false},
				{ID: 4, Name: "de", Available: true},
			},
		},
		{
			name: "kept entries retain order",
			prev: []Entry{
				{ID: 1, Name: "zh", Available: true},
				{ID: 2, Name: "en", Available: false},
			},
			found: []Discovered{{ID: 3, Name: "en"}, {ID: 4, Name: "zh"}},
			want: []Entry{
				{ID: 4, Name: "zh", Available: true},
				{ID: 3, Name: "en", Available: false},
			},
		},
		{
			name: "nothing found",
			prev: []Entry{{ID: 1, Name: "en", Available: true}},
			want: []Entry{},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got := Reconcile(test.prev, test.found)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("Reconcile (-want, +got):\n%s", diff)
			}

			// Reconciling the same discovery again changes nothing.
			again := Reconcile(got, test.found)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Fatalf("Reconcile twice (-want, +got):\n%s", diff)
			}
		})
	}
}

// memStore is an in-memory Store.
type memStore struct {
	snap    *Snapshot
	saveErr error
	saves   int
}

func (s *memStore) Load(_ context.Context) (*Snapshot, error) {
	if s.snap == nil {
		return &Snapshot{}, nil
	}
	return s.snap.clone(), nil
}

func (s *memStore) Save(_ context.Context, snap *Snapshot) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.snap = snap.clone()
	return nil
}

func (s *memStore) Close() error { return nil }

func TestCatalog_Apply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.Apply(ctx, "/dicts", []Discovered{{ID: 1, Name: "en"}, {ID: 2, Name: "fr"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := c.SetAvailable(ctx, "fr", false); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}
	if err := c.Apply(ctx, "/dicts", []Discovered{{ID: 3, Name: "en"}, {ID: 4, Name: "fr"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	want := []Entry{
		{ID: 3, Name: "en", Available: true},
		{ID: 4, Name: "fr", Available: false},
	}
	if diff := cmp.Diff(want, c.Entries()); diff != "" {
		t.Fatalf("Entries (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, store.snap.Dicts); diff != "" {
		t.Fatalf("saved entries (-want, +got):\n%s", diff)
	}
	if want, got := "/dicts", c.Dir(); want != got {
		t.Fatalf("Dir: want %q, got %q", want, got)
	}

	if e, ok := c.Lookup(4); !ok || e.Name != "fr" {
		t.Fatalf("Lookup(4): got %+v, %v", e, ok)
	}
	if _, ok := c.Lookup(1); ok {
		t.Fatal("Lookup(1): stale id found")
	}
	if e, ok := c.LookupName("en"); !ok || e.ID != 3 {
		t.Fatalf("LookupName(en): got %+v, %v", e, ok)
	}
}

func TestCatalog_saveFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{}
	c, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Apply(ctx, "/dicts", []Discovered{{ID: 1, Name: "en"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	errDisk := errors.New("disk full")
	store.saveErr = errDisk
	if err := c.Apply(ctx, "/other", []Discovered{{ID: 2, Name: "fr"}}); !errors.Is(err, errDisk) {
		t.Fatalf("Apply: want error %v, got %v", errDisk, err)
	}
	if err := c.SetAvailable(ctx, "en", false); !errors.Is(err, errDisk) {
		t.Fatalf("SetAvailable: want error %v, got %v", errDisk, err)
	}

	want := []Entry{{ID: 1, Name: "en", Available: true}}
	if diff := cmp.Diff(want, c.Entries()); diff != "" {
		t.Fatalf("Entries (-want, +got):\n%s", diff)
	}
	if want, got := "/dicts", c.Dir(); want != got {
		t.Fatalf("Dir: want %q, got %q", want, got)
	}
}

func TestCatalog_SetAvailable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{snap: &Snapshot{
		DictDir: "/dicts",
		Dicts:   []Entry{{ID: 1, Name: "en", Available: true}},
	}}
	c, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := c.SetAvailable(ctx, "de", true); !errors.Is(err, ErrUnknown) {
		t.Fatalf("SetAvailable: want error %v, got %v", ErrUnknown, err)
	}
	// Setting the current value is not saved.
	if err := c.SetAvailable(ctx, "en", true); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}
	if want, got := 0, store.saves; want != got {
		t.Fatalf("saves: want %d, got %d", want, got)
	}
	if err := c.SetAvailable(ctx, "en", false); err != nil {
		t.Fatalf("SetAvailable: %v", err)
	}
	if e, _ := c.LookupName("en"); e.Available {
		t.Fatal("LookupName(en): still available")
	}
}

func TestCatalog_Lookup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &memStore{snap: &Snapshot{
		DictDir: "/dicts",
		Dicts: []Entry{
			{ID: 5, Name: "en", Available: true},
			{ID: 5, Name: "de", Available: true},
			{ID: 7, Name: "fr", Available: true},
		},
	}}
	c, err := Open(ctx, store)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	tests := []struct {
		id   uint32
		want Entry
		ok   bool
	}{
		{id: 5, want: Entry{ID: 5, Name: "en", Available: true}, ok: true},
		{id: 7, want: Entry{ID: 7, Name: "fr", Available: true}, ok: true},
		{id: 6},
	}
	for _, test := range tests {
		got, ok := c.Lookup(test.id)
		if ok != test.ok {
			t.Fatalf("Lookup(%d): want found %v, got %v", test.id, test.ok, ok)
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("Lookup(%d) (-want, +got):\n%s", test.id, diff)
		}
	}

	// Index positions follow the reconciled order.
	if err := c.Apply(ctx, "/dicts", []Discovered{{ID: 8, Name: "fr"}, {ID: 9, Name: "it"}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if e, ok := c.Lookup(9); !ok || e.Name != "it" {
		t.Fatalf("Lookup(9): got %+v, %v", e, ok)
	}
	if e, ok := c.Lookup(8); !ok || e.Name != "fr" {
		t.Fatalf("Lookup(8): got %+v, %v", e, ok)
	}
	for _, id := range []uint32{5, 7} {
		if _, ok := c.Lookup(id); ok {
			t.Fatalf("Lookup(%d): stale id found", id)
		}
	}
}
