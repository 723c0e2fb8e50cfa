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
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/transform"
)

var (
	errInvalidIdxOffset = errors.New("invalid idxoffsetbits")
	errTruncatedIndex   = errors.New("truncated index entry")
	errSynonymRange     = errors.New("synonym refers past end of index")
)

// idxWord is an .idx file entry.
type idxWord struct {
	Word   string
	Offset uint64
	Size   uint32
}

// synWord is a .syn file entry. Index is the position of the original word
// in the .idx file.
type synWord struct {
	Word  string
	Index uint32
}

// scanIdx reads every entry of an .idx file in file order.
func scanIdx(r io.Reader, offsetBits int) ([]*idxWord, error) {
	if offsetBits != 32 && offsetBits != 64 {
		return nil, fmt.Errorf("%w: %v", errInvalidIdxOffset, offsetBits)
	}
	tail := offsetBits/8 + 4

	var words []*idxWord
	s := bufio.NewScanner(bufio.NewReader(r))
	s.Split(splitEntry(tail))
	for s.Scan() {
		b := s.Bytes()
		i := bytes.IndexByte(b, 0)
		w := &idxWord{Word: string(b[:i])}
		b = b[i+1:]
		if offsetBits == 64 {
			w.Offset = binary.BigEndian.Uint64(b)
		} else {
			w.Offset = uint64(binary.BigEndian.Uint32(b))
		}
		w.Size = binary.BigEndian.Uint32(b[offsetBits/8:])
		words = append(words, w)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scanning index: %w", err)
	}
	return words, nil
}

// scanSyn reads every entry of a .syn file.
func scanSyn(r io.Reader) ([]*synWord, error) {
	var words []*synWord
	s := bufio.NewScanner(bufio.NewReader(r))
	s.Split(splitEntry(4))
	for s.Scan() {
		b := s.Bytes()
		i := bytes.IndexByte(b, 0)
		words = append(words, &synWord{
			Word:  string(b[:i]),
			Index: binary.BigEndian.Uint32(b[i+1:]),
		})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scanning synonyms: %w", err)
	}
	return words, nil
}

// splitEntry returns a split function for entries made of a null terminated
// word followed by tail bytes of fixed size data.
func splitEntry(tail int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			tokenSize := i + 1 + tail
			if len(data) >= tokenSize {
				return tokenSize, data[:tokenSize], nil
			}
		}
		if atEOF {
			return 0, nil, errTruncatedIndex
		}
		// Request more data.
		return 0, nil, nil
	}
}

// openCompanion opens the file sharing the .ifo base name with one of exts.
// Files ending in .gz or .dz are transparently decompressed.
func openCompanion(ifoPath string, exts []string) (io.ReadCloser, error) {
	baseName := strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))
	path, err := findSibling(baseName, exts)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gz" && ext != ".dz" {
		return f, nil
	}
	z, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	return &gzipFile{Reader: z, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.f.Close())
}

// findSibling returns the first existing path made of baseName and one of
// exts.
func findSibling(baseName string, exts []string) (string, error) {
	for _, ext := range exts {
		path := baseName + ext
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", path, err)
		}
	}
	return "", fmt.Errorf("%s{%s}: %w", baseName, strings.Join(exts, ","), os.ErrNotExist)
}

// key is a folded search key pointing at an .idx word.
type key struct {
	folded string
	index  uint32
}

// index is the in-memory search index of a dictionary. Keys from both the
// .idx and the .syn file are sorted by their folded form.
type index struct {
	keys []key
}

// newIndex builds the search index. fold returns the transformer applied to
// every headword.
func newIndex(words []*idxWord, syns []*synWord, fold func() transform.Transformer) (*index, error) {
	keys := make([]key, 0, len(words)+len(syns))
	for i, w := range words {
		folded, _, err := transform.String(fold(), w.Word)
		if err != nil {
			return nil, fmt.Errorf("folding word %q: %w", w.Word, err)
		}
		//nolint:gosec // the number of index entries is bounded by uint32 in the file format.
		keys = append(keys, key{folded: folded, index: uint32(i)})
	}
	for _, s := range syns {
		if int(s.Index) >= len(words) {
			return nil, fmt.Errorf("%w: %q -> %d", errSynonymRange, s.Word, s.Index)
		}
		folded, _, err := transform.String(fold(), s.Word)
		if err != nil {
			return nil, fmt.Errorf("folding synonym %q: %w", s.Word, err)
		}
		keys = append(keys, key{folded: folded, index: s.Index})
	}

	slices.SortStableFunc(keys, func(a, b key) int {
		return strings.Compare(a.folded, b.folded)
	})
	return &index{keys: keys}, nil
}

// search returns the distinct word positions whose key equals the folded
// query, in ascending order.
func (idx *index) search(folded string) []uint32 {
	i, found := sort.Find(len(idx.keys), func(i int) int {
		return strings.Compare(folded, idx.keys[i].folded)
	})
	if !found {
		return nil
	}

	var result []uint32
	for ; i < len(idx.keys) && idx.keys[i].folded == folded; i++ {
		result = append(result, idx.keys[i].index)
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// prefix calls yield for each key starting with the folded query, in key
// order, until yield returns false.
func (idx *index) prefix(folded string, yield func(key) bool) {
	i := sort.Search(len(idx.keys), func(i int) bool {
		return idx.keys[i].folded >= folded
	})
	for ; i < len(idx.keys) && strings.HasPrefix(idx.keys[i].folded, folded); i++ {
		if !yield(idx.keys[i]) {
			return
		}
	}
}

// contains calls yield for each key containing, but not starting with, the
// folded query until yield returns false.
func (idx *index) contains(folded string, yield func(key) bool) {
	for _, k := range idx.keys {
		if strings.HasPrefix(k.folded, folded) || !strings.Contains(k.folded, folded) {
			continue
		}
		if !yield(k) {
			return
		}
	}
}
