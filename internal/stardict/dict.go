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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ianlewis/go-dictzip"
	"github.com/k3a/html2text"
)

var (
	errInvalidType        = errors.New("invalid type")
	errWordOffsetTooLarge = errors.New("word offset too large")
	errTruncatedArticle   = errors.New("truncated article")
)

// DataType is a type of article data. It is represented by a single byte.
// Lower case characters represent string-like data that is terminated by a
// null terminator ('\0'). Upper case characters represent file-like data
// that starts with a 32-bit size followed by file data.
type DataType byte

const (
	// UTFTextType is utf-8 text.
	UTFTextType = DataType('m')

	// LocaleTextType is text in a locale encoding.
	LocaleTextType = DataType('l')

	// PangoTextType is utf-8 text in the Pango text format.
	PangoTextType = DataType('g')

	// PhoneticType is utf-8 text representing an English phonetic string.
	PhoneticType = DataType('t')

	// XDXFType is utf-8 encoded xml in XDXF format.
	XDXFType = DataType('x')

	// YinBiaoOrKataType is utf-8 encoded Yin Biao or Kana phonetic string.
	YinBiaoOrKataType = DataType('y')

	// PowerWordType is a utf-8 encoded KingSoft PowerWord XML format.
	PowerWordType = DataType('k')

	// MediaWikiType is utf-8 encoded text in MediaWiki format.
	MediaWikiType = DataType('w')

	// HTMLType is utf-8 encoded HTML text.
	HTMLType = DataType('h')

	// WordNetType is WordNet data.
	WordNetType = DataType('n')

	// ResourceFileListType is a list of files in resource storage.
	ResourceFileListType = DataType('r')

	// WavType is .wav sound file data.
	WavType = DataType('W')

	// PictureType is image file data.
	PictureType = DataType('P')

	// ExperimentalType is reserved for experimental features.
	ExperimentalType = DataType('X')
)

func (t DataType) valid() bool {
	switch t {
	case UTFTextType,
		LocaleTextType,
		PangoTextType,
		PhoneticType,
		XDXFType,
		YinBiaoOrKataType,
		PowerWordType,
		MediaWikiType,
		HTMLType,
		WordNetType,
		ResourceFileListType,
		WavType,
		PictureType,
		ExperimentalType:
		return true
	}
	return false
}

// stringLike reports whether data of this type is null terminated.
func (t DataType) stringLike() bool {
	return 'a' <= t && t <= 'z'
}

// Data is a single piece of article data.
type Data struct {
	Type DataType
	Data []byte
}

// String returns a plain text representation of the data. Binary data types
// are represented by the empty string.
func (d *Data) String() string {
	switch d.Type {
	case UTFTextType, PhoneticType, YinBiaoOrKataType, LocaleTextType, WordNetType:
		return string(d.Data)
	case HTMLType, XDXFType, PangoTextType:
		return html2text.HTML2Text(string(d.Data))
	default:
		return ""
	}
}

// dictFile is an open .dict or .dict.dz file.
type dictFile struct {
	r       io.ReaderAt
	closers []io.Closer

	sametypesequence []DataType
}

// openDict opens the dict file belonging to the .ifo file at ifoPath.
func openDict(ifoPath string, sametypesequence []DataType) (*dictFile, error) {
	for _, t := range sametypesequence {
		if !t.valid() {
			return nil, fmt.Errorf("%w: %q", errInvalidType, byte(t))
		}
	}

	baseName := strings.TrimSuffix(ifoPath, filepath.Ext(ifoPath))
	dictPath, err := findSibling(baseName, []string{
		".dict.dz",
		".dict",
		".DICT",
		".DICT.dz",
		".DICT.DZ",
	})
	if err != nil {
		return nil, fmt.Errorf("finding .dict file: %w", err)
	}

	f, err := os.Open(dictPath)
	if err != nil {
		return nil, fmt.Errorf("opening .dict file: %w", err)
	}

	d := &dictFile{
		r:                f,
		closers:          []io.Closer{f},
		sametypesequence: sametypesequence,
	}
	if strings.EqualFold(filepath.Ext(dictPath), ".dz") {
		z, err := dictzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("opening dictzip reader %q: %w", dictPath, err)
		}
		d.r = z
		d.closers = []io.Closer{z, f}
	}
	return d, nil
}

// read reads the raw article bytes for w.
func (d *dictFile) read(w *idxWord) ([]byte, error) {
	if w.Offset > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", errWordOffsetTooLarge, w.Offset)
	}
	b := make([]byte, w.Size)
	//nolint:gosec // offset size is bounds checked above.
	if _, err := d.r.ReadAt(b, int64(w.Offset)); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	return b, nil
}

func (d *dictFile) Close() error {
	var errs []error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// decodeArticle splits raw article bytes into typed data.
//
// When sametypesequence is given, the type bytes are omitted and the last
// item carries neither a null terminator nor a size; it extends to the end of
// the article.
func decodeArticle(b []byte, sametypesequence []DataType) ([]*Data, error) {
	var data []*Data
	if len(sametypesequence) > 0 {
		for i, t := range sametypesequence {
			last := i == len(sametypesequence)-1
			var item []byte
			var err error
			switch {
			case last:
				item = bytes.TrimSuffix(b, []byte{0})
				b = nil
			case t.stringLike():
				item, b = splitString(b)
			default:
				item, b, err = splitFile(b)
				if err != nil {
					return nil, err
				}
			}
			data = append(data, &Data{Type: t, Data: item})
		}
		return data, nil
	}

	for len(b) > 0 {
		t := DataType(b[0])
		if !t.valid() {
			return nil, fmt.Errorf("%w: %q", errInvalidType, b[0])
		}
		b = b[1:]

		var item []byte
		var err error
		if t.stringLike() {
			item, b = splitString(b)
		} else {
			item, b, err = splitFile(b)
			if err != nil {
				return nil, err
			}
		}
		data = append(data, &Data{Type: t, Data: item})
	}
	return data, nil
}

// splitString splits a null terminated string from b.
func splitString(b []byte) ([]byte, []byte) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return b, nil
	}
	return b[:i], b[i+1:]
}

// splitFile splits size-prefixed file data from b.
func splitFile(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, errTruncatedArticle
	}
	size := binary.BigEndian.Uint32(b)
	b = b[4:]
	if uint64(size) > uint64(len(b)) {
		return nil, nil, fmt.Errorf("%w: want %d bytes, have %d", errTruncatedArticle, size, len(b))
	}
	return b[:size], b[size:], nil
}
