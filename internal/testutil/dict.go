// Copyright 2021 Google LLC
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

// Package testutil builds StarDict dictionary files for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ianlewis/go-dictzip"
)

// Data is a single typed piece of article data.
type Data struct {
	Type byte
	Data []byte
}

// Word is a headword and its article.
type Word struct {
	Word string
	Data []*Data
}

// stringLike reports whether data of type t is null terminated.
func stringLike(t byte) bool {
	return 'a' <= t && t <= 'z'
}

// MakeArticle encodes a single article. When sameTypeSequence is not empty
// the type bytes are omitted and the last item carries no terminator or size.
func MakeArticle(t *testing.T, data []*Data, sameTypeSequence string) []byte {
	t.Helper()

	var b []byte
	for i, d := range data {
		last := i == len(data)-1
		if sameTypeSequence == "" {
			b = append(b, d.Type)
		} else if last {
			b = append(b, d.Data...)
			continue
		}
		if stringLike(d.Type) {
			b = append(b, d.Data...)
			b = append(b, 0) // Append a zero byte terminator.
			continue
		}
		dataLen := len(d.Data)
		if dataLen > math.MaxUint32 {
			t.Fatalf("word data too long: %d", dataLen)
		}
		//nolint:gosec // length is bounds checked above.
		b = binary.BigEndian.AppendUint32(b, uint32(dataLen))
		b = append(b, d.Data...)
	}
	return b
}

// MakeDict creates the contents of a .dict file and the index entries
// pointing at each article.
func MakeDict(t *testing.T, words []*Word, sameTypeSequence string) ([]byte, []*IndexEntry) {
	t.Helper()

	var b []byte
	entries := make([]*IndexEntry, 0, len(words))
	for _, w := range words {
		a := MakeArticle(t, w.Data, sameTypeSequence)
		entries = append(entries, &IndexEntry{
			Word:   w.Word,
			Offset: uint64(len(b)),
			//nolint:gosec // test articles are small.
			Size: uint32(len(a)),
		})
		b = append(b, a...)
	}
	return b, entries
}

// DictZip compresses b in the dictzip format.
func DictZip(t *testing.T, b []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	z, err := dictzip.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := z.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
