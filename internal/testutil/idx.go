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

package testutil

import (
	"encoding/binary"
	"fmt"
	"math"
)

// IndexEntry is an .idx file entry.
type IndexEntry struct {
	Word   string
	Offset uint64
	Size   uint32
}

// Synonym is a .syn file entry pointing at the index entry at position Index.
type Synonym struct {
	Word  string
	Index uint32
}

// MakeIndex make a test index given a list of words.
func MakeIndex(words []*IndexEntry, idxoffsetbits int) []byte {
	b := []byte{}
	for _, w := range words {
		b = append(b, []byte(w.Word)...)
		b = append(b, 0) // Add the zero byte terminator.
		switch idxoffsetbits {
		case 32:
			if w.Offset > math.MaxUint32 {
				panic(fmt.Sprintf("word offset too large %d > %d", w.Offset, idxoffsetbits))
			}
			//nolint:gosec // test code, offset size determined by idxoffsetbits
			b = binary.BigEndian.AppendUint32(b, uint32(w.Offset))
		case 64:
			b = binary.BigEndian.AppendUint64(b, w.Offset)
		default:
			panic(fmt.Sprintf("unsupported offset bits: %d", idxoffsetbits))
		}
		b = binary.BigEndian.AppendUint32(b, w.Size)
	}
	return b
}

// MakeSyn makes a test .syn file.
func MakeSyn(syns []*Synonym) []byte {
	b := []byte{}
	for _, s := range syns {
		b = append(b, []byte(s.Word)...)
		b = append(b, 0)
		b = binary.BigEndian.AppendUint32(b, s.Index)
	}
	return b
}
