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

package testutil

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Package describes a dictionary package written by MakePackage.
type Package struct {
	// Name is the package directory name and the base name of its files.
	Name string

	// Bookname defaults to Name.
	Bookname string

	// Version defaults to "3.0.0".
	Version string

	Words    []*Word
	Synonyms []*Synonym

	SameTypeSequence string

	// IdxOffsetBits defaults to 32.
	IdxOffsetBits int

	// DictZip compresses the .dict file with dictzip.
	DictZip bool

	// GzipIndex compresses the .idx file with gzip.
	GzipIndex bool

	// Resources maps slash separated names to the contents of files under
	// the package's res directory.
	Resources map[string][]byte

	CSS string
	JS  string
}

// MakePackage writes p as a subdirectory of root and returns the path of
// its .ifo file.
func MakePackage(t *testing.T, root string, p *Package) string {
	t.Helper()

	dir := filepath.Join(root, p.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	base := filepath.Join(dir, p.Name)

	bits := p.IdxOffsetBits
	if bits == 0 {
		bits = 32
	}
	version := p.Version
	if version == "" {
		version = "3.0.0"
	}
	bookname := p.Bookname
	if bookname == "" {
		bookname = p.Name
	}

	d, entries := MakeDict(t, p.Words, p.SameTypeSequence)
	idx := MakeIndex(entries, bits)

	var ifo strings.Builder
	ifo.WriteString("StarDict's dict ifo file\n")
	fmt.Fprintf(&ifo, "version=%s\n", version)
	fmt.Fprintf(&ifo, "bookname=%s\n", bookname)
	fmt.Fprintf(&ifo, "wordcount=%d\n", len(p.Words))
	fmt.Fprintf(&ifo, "idxfilesize=%d\n", len(idx))
	if bits != 32 {
		fmt.Fprintf(&ifo, "idxoffsetbits=%d\n", bits)
	}
	if len(p.Synonyms) > 0 {
		fmt.Fprintf(&ifo, "synwordcount=%d\n", len(p.Synonyms))
	}
	if p.SameTypeSequence != "" {
		fmt.Fprintf(&ifo, "sametypesequence=%s\n", p.SameTypeSequence)
	}
	writeFile(t, base+".ifo", []byte(ifo.String()))

	if p.GzipIndex {
		writeFile(t, base+".idx.gz", gzipBytes(t, idx))
	} else {
		writeFile(t, base+".idx", idx)
	}
	if len(p.Synonyms) > 0 {
		writeFile(t, base+".syn", MakeSyn(p.Synonyms))
	}
	if p.DictZip {
		writeFile(t, base+".dict.dz", DictZip(t, d))
	} else {
		writeFile(t, base+".dict", d)
	}

	for name, b := range p.Resources {
		path := filepath.Join(dir, "res", filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, path, b)
	}
	if p.CSS != "" {
		writeFile(t, base+".css", []byte(p.CSS))
	}
	if p.JS != "" {
		writeFile(t, base+".js", []byte(p.JS))
	}

	return base + ".ifo"
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
}

func gzipBytes(t *testing.T, b []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	z := gzip.NewWriter(&buf)
	if _, err := z.Write(b); err != nil {
		t.Fatal(err)
	}
	if err := z.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
