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
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const ifoMagic = "StarDict's dict ifo file"

var (
	errBadMagic       = errors.New("bad magic data")
	errMissingVersion = errors.New("missing version")
	errInvalidKey     = errors.New("invalid key")
	errInvalidLine    = errors.New("invalid line")
)

var keyRegex = regexp.MustCompile("^[a-zA-Z0-9-_]+$")

// ifo is the parsed metadata of an .ifo file.
type ifo struct {
	magic    string
	metadata map[string]string
}

// parseIfo reads .ifo metadata. The first line is the magic string and the
// first key must be "version".
func parseIfo(r io.Reader) (*ifo, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, fmt.Errorf("reading .ifo: %w", err)
		}
		return nil, errBadMagic
	}

	i := &ifo{
		magic:    strings.TrimPrefix(strings.TrimRight(s.Text(), "\r"), "\ufeff"),
		metadata: map[string]string{},
	}

	n := 0
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", errInvalidLine, line)
		}
		key = strings.TrimSpace(key)
		if !keyRegex.MatchString(key) {
			return nil, fmt.Errorf("%w: %q", errInvalidKey, key)
		}
		if n == 0 && key != "version" {
			return nil, errMissingVersion
		}
		i.metadata[key] = strings.TrimSpace(value)
		n++
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading .ifo: %w", err)
	}
	if n == 0 {
		return nil, errMissingVersion
	}

	return i, nil
}

// Magic returns the first line of the file.
func (i *ifo) Magic() string {
	return i.magic
}

// Value returns the value for key or the empty string.
func (i *ifo) Value(key string) string {
	return i.metadata[key]
}
