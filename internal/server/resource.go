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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/youginil/beluga/internal/engine"
)

// contentType guesses the content type from name's extension, falling back
// to sniffing b.
func contentType(name string, b []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(b)
}

func writeBytes(w http.ResponseWriter, r *http.Request, ctype string, b []byte) {
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(b)
	}
}

// handleResource serves a resource of the dictionary named by the cookie.
func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	id, err := cookieID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		s.fail(w, r, badRequest("missing name"))
		return
	}

	d, ok := s.reg.Lookup(id)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: dictionary %d", errNotFound, id))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LookupTimeout)
	defer cancel()
	b, err := d.Resource(ctx, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, r, contentType(name, b), b)
}

// handleSearch returns headwords matching the q parameter as a JSON list.
// The dictionary is named by the dict_id parameter or the cookie.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var id uint32
	var err error
	if q.Has(cookieName) {
		id, err = parseID(q.Get(cookieName))
	} else {
		id, err = cookieID(r)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	query := q.Get("q")
	if query == "" {
		s.fail(w, r, badRequest("missing q"))
		return
	}

	d, ok := s.reg.Lookup(id)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: dictionary %d", errNotFound, id))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LookupTimeout)
	defer cancel()
	words, err := d.Suggest(ctx, query, engine.SuggestOptions{
		PrefixLimit: s.cfg.PrefixLimit,
		PhraseLimit: s.cfg.PhraseLimit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if words == nil {
		words = []string{}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(words); err != nil {
		s.fail(w, r, err)
		return
	}
	writeBytes(w, r, "application/json; charset=utf-8", buf.Bytes())
}
