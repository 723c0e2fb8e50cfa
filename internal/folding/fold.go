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

package folding

import (
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// New returns the transformer used to build search keys. It strips
// diacritics and punctuation, folds whitespace, folds full-width forms and
// finally applies Unicode case folding. Transformers carry state so a new one
// is needed per use.
func New() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.P)),
		&WhitespaceFolder{},
		width.Fold,
		cases.Fold(),
		norm.NFC,
	)
}

// Key returns the folded form of s. If folding fails s is returned unchanged.
func Key(s string) string {
	k, _, err := transform.String(New(), s)
	if err != nil {
		return s
	}
	return k
}
