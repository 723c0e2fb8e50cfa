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
	"encoding/base64"
	"html"
	"net/http"
	"net/url"
	"strings"
)

// ResourcePath is the url path articles use to reference resource files.
const ResourcePath = "/@resource"

// Entry is a dictionary entry.
type Entry struct {
	word string
	data []*Data
}

// Title return the entry's title.
func (e *Entry) Title() string {
	return e.word
}

// Data returns the entry's data entries.
func (e *Entry) Data() []*Data {
	return e.data
}

// String returns a plain text representation of the Entry.
func (e *Entry) String() string {
	var b strings.Builder
	b.WriteString(e.word)
	b.WriteByte('\n')
	for _, d := range e.data {
		if s := d.String(); s != "" {
			b.WriteString(s)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// HTML returns the entry rendered as an HTML fragment.
func (e *Entry) HTML() string {
	var b strings.Builder
	e.writeHTML(&b)
	return b.String()
}

func (e *Entry) writeHTML(b *strings.Builder) {
	b.WriteString(`<div class="entry"><h2 class="headword">`)
	b.WriteString(html.EscapeString(e.word))
	b.WriteString(`</h2>`)
	for _, d := range e.data {
		writeData(b, d)
	}
	b.WriteString(`</div>`)
}

func writeData(b *strings.Builder, d *Data) {
	switch d.Type {
	case HTMLType, XDXFType, PangoTextType, PowerWordType:
		// Markup formats are passed through for the page to style.
		b.WriteString(`<div class="markup">`)
		b.Write(d.Data)
		b.WriteString(`</div>`)
	case PhoneticType, YinBiaoOrKataType:
		b.WriteString(`<div class="phonetic">[`)
		b.WriteString(html.EscapeString(string(d.Data)))
		b.WriteString(`]</div>`)
	case UTFTextType, LocaleTextType, MediaWikiType, WordNetType:
		b.WriteString(`<div class="text">`)
		b.WriteString(strings.ReplaceAll(html.EscapeString(string(d.Data)), "\n", "<br>"))
		b.WriteString(`</div>`)
	case ResourceFileListType:
		for _, line := range strings.Split(string(d.Data), "\n") {
			writeResourceRef(b, strings.TrimSpace(line))
		}
	case WavType:
		b.WriteString(`<audio controls src="data:audio/wav;base64,`)
		b.WriteString(base64.StdEncoding.EncodeToString(d.Data))
		b.WriteString(`"></audio>`)
	case PictureType:
		b.WriteString(`<img src="data:`)
		b.WriteString(http.DetectContentType(d.Data))
		b.WriteString(`;base64,`)
		b.WriteString(base64.StdEncoding.EncodeToString(d.Data))
		b.WriteString(`">`)
	}
}

// writeResourceRef renders a single resource list line such as
// "img:pic/cat.png" or "snd:cat.wav".
func writeResourceRef(b *strings.Builder, line string) {
	kind, name, ok := strings.Cut(line, ":")
	if !ok || name == "" {
		return
	}
	src := html.EscapeString(ResourcePath + "?name=" + url.QueryEscape(name))
	switch kind {
	case "img":
		b.WriteString(`<img src="` + src + `">`)
	case "snd":
		b.WriteString(`<audio controls src="` + src + `"></audio>`)
	case "vdo":
		b.WriteString(`<video controls src="` + src + `"></video>`)
	default:
		b.WriteString(`<a href="` + src + `">` + html.EscapeString(name) + `</a>`)
	}
}
