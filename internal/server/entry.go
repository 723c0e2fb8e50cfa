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
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/youginil/beluga/internal/engine"
)

// entryPage holds the parts of a rendered entry document.
type entryPage struct {
	DictID    uint32
	Title     string
	Style     string
	Script    string
	Bootstrap string
	Content   string
}

// page renders the entry document. Dictionary fragments are written as is.
func page(p entryPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<meta name="beluga-dict" content="%d">
<title>%s</title>
`, p.DictID, templ.EscapeString(p.Title))
		if err != nil {
			return err
		}
		for _, c := range []templ.Component{
			element("style", templ.Raw(p.Style)),
			element("script", templ.Raw(p.Script)),
			element("script", templ.Raw(p.Bootstrap)),
		} {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</head>\n"); err != nil {
			return err
		}
		if err := element("body", templ.Raw(p.Content)).Render(ctx, w); err != nil {
			return err
		}
		_, err = io.WriteString(w, "</html>\n")
		return err
	})
}

// element wraps child in tag.
func element(tag string, child templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<"+tag+">"); err != nil {
			return err
		}
		if err := child.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+tag+">\n")
		return err
	})
}

// headWriter drops the response body.
type headWriter struct {
	http.ResponseWriter
}

func (w headWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

// handleEntry renders the entry named by the name parameter in the
// dictionary named by the dict_id parameter.
func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has(cookieName) {
		s.fail(w, r, badRequest("missing dict_id"))
		return
	}
	id, err := parseID(q.Get(cookieName))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := q.Get("name")
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

	content, err := d.Search(ctx, name, engine.SearchOptions{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if content == "" {
		s.fail(w, r, fmt.Errorf("%w: %q in dictionary %d", errNotFound, name, id))
		return
	}
	css, js, err := d.StyleScript(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to get style and script", "dict_id", id, "error", err)
		css, js = "", ""
	}

	h := templ.Handler(page(entryPage{
		DictID:    id,
		Title:     name,
		Style:     css,
		Script:    js,
		Bootstrap: s.bootstrap.script(ctx),
		Content:   content,
	}), templ.WithContentType("text/html; charset=utf-8"), templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Del("Set-Cookie")
			s.fail(w, r, err)
		})
	}))

	setCookie(w, id)
	if r.Method == http.MethodHead {
		w = headWriter{w}
	}
	h.ServeHTTP(w, r)
}
