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

package stardict

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/transform"

	"github.com/youginil/beluga/internal/engine"
	"github.com/youginil/beluga/internal/folding"
)

// MarkerExt is the extension of the file that identifies a package.
const MarkerExt = ".ifo"

// resourceDir is the resource storage directory next to the .ifo file.
const resourceDir = "res"

var (
	errBadExtension   = errors.New("bad extension")
	errInvalidVersion = errors.New("invalid version")
	errMissingName    = errors.New("missing bookname")
	errBadCount       = errors.New("bad count")
)

// Options configures opening a dictionary.
type Options struct {
	// Folder returns a [transform.Transformer] that folds headwords and
	// queries before they are compared.
	Folder func() transform.Transformer
}

// DefaultOptions are the options used when nil options are given.
var DefaultOptions = &Options{
	Folder: folding.New,
}

// Stardict is an opened StarDict dictionary. A Stardict is not safe for
// concurrent use.
type Stardict struct {
	ifoPath string

	version          string
	bookname         string
	wordcount        int64
	synwordcount     int64
	idxoffsetbits    int
	author           string
	email            string
	website          string
	description      string
	sametypesequence []DataType

	fold func() transform.Transformer

	words     []*idxWord
	index     *index
	dict      *dictFile
	resources []string

	css string
	js  string
}

// Open opens the StarDict dictionary whose .ifo file is at ifoPath. The
// index and synonyms are loaded into memory; articles are read on demand.
func Open(ifoPath string, options *Options) (*Stardict, error) {
	if options == nil {
		options = DefaultOptions
	}
	s := &Stardict{
		ifoPath:       ifoPath,
		idxoffsetbits: 32,
		fold:          DefaultOptions.Folder,
	}
	if options.Folder != nil {
		s.fold = options.Folder
	}

	if ext := filepath.Ext(ifoPath); !strings.EqualFold(ext, MarkerExt) {
		return nil, fmt.Errorf("%w: %v", errBadExtension, ext)
	}

	if err := s.readIfo(); err != nil {
		return nil, err
	}

	r, err := openCompanion(ifoPath, []string{".idx", ".idx.gz", ".IDX", ".IDX.gz", ".IDX.GZ"})
	if err != nil {
		return nil, fmt.Errorf("opening .idx file: %w", err)
	}
	s.words, err = scanIdx(r, s.idxoffsetbits)
	_ = r.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", ifoPath, err)
	}

	var syns []*synWord
	r, err = openCompanion(ifoPath, []string{".syn", ".syn.gz", ".syn.dz", ".SYN", ".SYN.GZ", ".SYN.DZ"})
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Synonyms are optional.
	case err != nil:
		return nil, fmt.Errorf("opening .syn file: %w", err)
	default:
		syns, err = scanSyn(r)
		_ = r.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", ifoPath, err)
		}
	}

	s.index, err = newIndex(s.words, syns, s.fold)
	if err != nil {
		return nil, fmt.Errorf("indexing %q: %w", ifoPath, err)
	}

	s.resources, err = listResources(filepath.Join(filepath.Dir(ifoPath), resourceDir))
	if err != nil {
		return nil, fmt.Errorf("listing resources: %w", err)
	}

	s.css, err = readOptional(ifoPath, ".css")
	if err != nil {
		return nil, err
	}
	s.js, err = readOptional(ifoPath, ".js")
	if err != nil {
		return nil, err
	}

	s.dict, err = openDict(ifoPath, s.sametypesequence)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Stardict) readIfo() error {
	f, err := os.Open(s.ifoPath)
	if err != nil {
		return fmt.Errorf("opening %q: %w", s.ifoPath, err)
	}
	defer f.Close()

	i, err := parseIfo(f)
	if err != nil {
		return fmt.Errorf("reading %q: %w", s.ifoPath, err)
	}
	if i.Magic() != ifoMagic {
		return fmt.Errorf("%q: %w", s.ifoPath, errBadMagic)
	}

	s.version = i.Value("version")
	switch s.version {
	case "2.4.2", "3.0.0":
	default:
		return fmt.Errorf("%w: %v", errInvalidVersion, s.version)
	}

	s.bookname = i.Value("bookname")
	if s.bookname == "" {
		return errMissingName
	}

	s.wordcount, err = strconv.ParseInt(i.Value("wordcount"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: wordcount: %w", errBadCount, err)
	}

	if v := i.Value("idxoffsetbits"); v != "" && s.version == "3.0.0" {
		bits, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidIdxOffset, err)
		}
		s.idxoffsetbits = bits
	}

	if v := i.Value("synwordcount"); v != "" {
		s.synwordcount, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: synwordcount: %w", errBadCount, err)
		}
	}

	for _, r := range i.Value("sametypesequence") {
		s.sametypesequence = append(s.sametypesequence, DataType(r))
	}

	s.author = i.Value("author")
	s.email = i.Value("email")
	s.website = i.Value("website")
	s.description = i.Value("description")
	return nil
}

// listResources returns the slash separated paths of the files under dir,
// sorted. A missing directory has no resources.
func listResources(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// readOptional reads the file next to the .ifo file with the given extension.
func readOptional(ifoPath, ext string) (string, error) {
	p := strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath)) + ext
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", p, err)
	}
	return string(b), nil
}

// Bookname returns the dictionary name.
func (s *Stardict) Bookname() string {
	return s.bookname
}

// Description returns the dictionary description.
func (s *Stardict) Description() string {
	return s.description
}

// Author returns the dictionary author.
func (s *Stardict) Author() string {
	return s.author
}

// Email returns the dictionary contact email.
func (s *Stardict) Email() string {
	return s.email
}

// Website returns the dictionary website url.
func (s *Stardict) Website() string {
	return s.website
}

// WordCount returns the word count declared in the .ifo file.
func (s *Stardict) WordCount() int64 {
	return s.wordcount
}

// Version returns the dictionary format version.
func (s *Stardict) Version() string {
	return s.version
}

// Slots returns the number of cache slots the dictionary uses: one per index
// entry followed by one per resource file.
func (s *Stardict) Slots() uint64 {
	return uint64(len(s.words)) + uint64(len(s.resources))
}

// Resources returns the names of the files in resource storage.
func (s *Stardict) Resources() []string {
	return slices.Clone(s.resources)
}

// Entries returns the entries matching query. c may be nil, in which case
// article data is always read from disk. limit caps the number of entries
// when positive.
func (s *Stardict) Entries(ctx context.Context, c engine.Cache, query string, limit int) ([]*Entry, error) {
	folded, _, err := transform.String(s.fold(), query)
	if err != nil {
		return nil, fmt.Errorf("folding query %q: %w", query, err)
	}

	var entries []*Entry
	for _, i := range s.index.search(folded) {
		if limit > 0 && len(entries) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := s.words[i]
		raw, err := s.article(c, i, w)
		if err != nil {
			return nil, err
		}
		data, err := decodeArticle(raw, s.sametypesequence)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", w.Word, err)
		}
		entries = append(entries, &Entry{word: w.Word, data: data})
	}
	return entries, nil
}

func (s *Stardict) article(c engine.Cache, i uint32, w *idxWord) ([]byte, error) {
	if c != nil {
		if b, ok := c.Get(uint64(i)); ok {
			return b, nil
		}
	}
	b, err := s.dict.read(w)
	if err != nil {
		return nil, err
	}
	if c != nil {
		c.Put(uint64(i), b)
	}
	return b, nil
}

// Search implements [engine.Handle.Search]. It renders the matching entries
// as HTML.
func (s *Stardict) Search(ctx context.Context, c engine.Cache, query string, opts engine.SearchOptions) (string, error) {
	entries, err := s.Entries(ctx, c, query, opts.MaxEntries)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", engine.ErrNotFound
	}
	var b strings.Builder
	for _, e := range entries {
		e.writeHTML(&b)
	}
	return b.String(), nil
}

// Suggest implements [engine.Handle.Suggest]. Headwords starting with the
// query come first, followed by headwords containing it.
func (s *Stardict) Suggest(ctx context.Context, query string, opts engine.SuggestOptions) ([]string, error) {
	folded, _, err := transform.String(s.fold(), query)
	if err != nil {
		return nil, fmt.Errorf("folding query %q: %w", query, err)
	}
	if folded == "" {
		return nil, nil
	}

	seen := map[uint32]bool{}
	var result []string
	collect := func(limit int) func(key) bool {
		n := 0
		return func(k key) bool {
			if n >= limit || ctx.Err() != nil {
				return false
			}
			if !seen[k.index] {
				seen[k.index] = true
				result = append(result, s.words[k.index].Word)
				n++
			}
			return n < limit
		}
	}
	if opts.PrefixLimit > 0 {
		s.index.prefix(folded, collect(opts.PrefixLimit))
	}
	if opts.PhraseLimit > 0 {
		s.index.contains(folded, collect(opts.PhraseLimit))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Resource implements [engine.Handle.Resource]. name is a slash separated
// path relative to the resource storage directory.
func (s *Stardict) Resource(ctx context.Context, c engine.Cache, name string) ([]byte, error) {
	name = path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))[1:]
	i, found := slices.BinarySearch(s.resources, name)
	if !found {
		return nil, engine.ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := uint64(len(s.words)) + uint64(i)
	if c != nil {
		if b, ok := c.Get(k); ok {
			return b, nil
		}
	}
	p := filepath.Join(filepath.Dir(s.ifoPath), resourceDir, filepath.FromSlash(name))
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading resource %q: %w", name, err)
	}
	if c != nil {
		c.Put(k, b)
	}
	return b, nil
}

// StyleScript implements [engine.Handle.StyleScript]. The fragments are read
// from the .css and .js files sharing the .ifo base name.
func (s *Stardict) StyleScript() (string, string, error) {
	return s.css, s.js, nil
}

// Close closes the dictionary's files.
func (s *Stardict) Close() error {
	if s.dict == nil {
		return nil
	}
	return s.dict.Close()
}

// OpenAll opens all dictionaries under a directory. This function will return
// all successfully opened dictionaries along with any errors that occurred.
func OpenAll(dir string, options *Options) ([]*Stardict, []error) {
	var dicts []*Stardict
	var errs []error
	if err := filepath.WalkDir(dir, func(p string, info fs.DirEntry, err error) error {
		// Walking the file path will ignore errors.
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(info.Name()), MarkerExt) {
			dict, err := Open(p, options)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			dicts = append(dicts, dict)
		}
		return nil
	}); err != nil {
		errs = append(errs, err)
		return nil, errs
	}
	return dicts, errs
}
