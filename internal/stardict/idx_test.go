// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stardict

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/youginil/beluga/internal/folding"
	"github.com/youginil/beluga/internal/testutil"
)

func TestScanIdx(t *testing.T) {
	t.Parallel()

	entries := []*testutil.IndexEntry{
		{Word: "foo", Offset: 0, Size: 3},
		{Word: "bar", Offset: 3, Size: 10},
		{Word: "日本語", Offset: 13, Size: 1},
	}
	want := []*idxWord{
		{Word: "foo", Offset: 0, Size: 3},
		{Word: "bar", Offset: 3, Size: 10},
		{Word: "日本語", Offset: 13, Size: 1},
	}

	for _, bits := range []int{32, 64} {
		got, err := scanIdx(bytes.NewReader(testutil.MakeIndex(entries, bits)), bits)
		if err != nil {
			t.Fatalf("scanIdx(%d): %v", bits, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("scanIdx(%d) (-want, +got):\n%s", bits, diff)
		}
	}
}

func TestScanIdx_errors(t *testing.T) {
	t.Parallel()

	b := testutil.MakeIndex([]*testutil.IndexEntry{{Word: "foo", Size: 3}}, 32)
	if _, err := scanIdx(bytes.NewReader(b[:len(b)-2]), 32); !errors.Is(err, errTruncatedIndex) {
		t.Fatalf("scanIdx: want error %v, got %v", errTruncatedIndex, err)
	}
	if _, err := scanIdx(bytes.NewReader(b), 16); !errors.Is(err, errInvalidIdxOffset) {
		t.Fatalf("scanIdx: want error %v, got %v", errInvalidIdxOffset, err)
	}
}

func TestScanSyn(t *testing.T) {
	t.Parallel()

	b := testutil.MakeSyn([]*testutil.Synonym{
		{Word: "colour", Index: 0},
		{Word: "hue", Index: 2},
	})
	got, err := scanSyn(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("scanSyn: %v", err)
	}
	want := []*synWord{
		{Word: "colour", Index: 0},
		{Word: "hue", Index: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scanSyn (-want, +got):\n%s", diff)
	}
}

func testIndex(t *testing.T) *index {
	t.Helper()

	words := []*idxWord{
		{Word: "Apple"},
		{Word: "apple"},
		{Word: "applet"},
		{Word: "pineapple"},
		{Word: "color"},
	}
	syns := []*synWord{
		{Word: "colour", Index: 4},
		{Word: "APPLE", Index: 0},
	}
	idx, err := newIndex(words, syns, folding.New)
	if err != nil {
		t.Fatalf("newIndex: %v", err)
	}
	return idx
}

func TestIndex_search(t *testing.T) {
	t.Parallel()

	idx := testIndex(t)
	tests := []struct {
		query string
		want  []uint32
	}{
		{query: "apple", want: []uint32{0, 1}},
		{query: "colour", want: []uint32{4}},
		{query: "color", want: []uint32{4}},
		{query: "missing", want: nil},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, idx.search(test.query)); diff != "" {
			t.Errorf("search(%q) (-want, +got):\n%s", test.query, diff)
		}
	}
}

func TestIndex_prefix(t *testing.T) {
	t.Parallel()

	idx := testIndex(t)
	var got []uint32
	idx.prefix("app", func(k key) bool {
		got = append(got, k.index)
		return true
	})
	// "Apple", "apple" and the "APPLE" synonym fold to the same key and keep
	// their insertion order.
	if diff := cmp.Diff([]uint32{0, 1, 0, 2}, got); diff != "" {
		t.Fatalf("prefix (-want, +got):\n%s", diff)
	}

	got = nil
	idx.prefix("app", func(k key) bool {
		got = append(got, k.index)
		return len(got) < 2
	})
	if diff := cmp.Diff([]uint32{0, 1}, got); diff != "" {
		t.Fatalf("prefix stop (-want, +got):\n%s", diff)
	}
}

func TestIndex_contains(t *testing.T) {
	t.Parallel()

	idx := testIndex(t)
	var got []uint32
	idx.contains("apple", func(k key) bool {
		got = append(got, k.index)
		return true
	})
	if diff := cmp.Diff([]uint32{3}, got); diff != "" {
		t.Fatalf("contains (-want, +got):\n%s", diff)
	}
}

func TestNewIndex_synonymRange(t *testing.T) {
	t.Parallel()

	_, err := newIndex([]*idxWord{{Word: "a"}}, []*synWord{{Word: "b", Index: 1}}, folding.New)
	if !errors.Is(err, errSynonymRange) {
		t.Fatalf("newIndex: want error %v, got %v", errSynonymRange, err)
	}
}
