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
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/youginil/beluga/internal/engine"
	"github.com/youginil/beluga/internal/registry"
)

var (
	// errBadRequest marks malformed client input.
	errBadRequest = errors.New("bad request")

	// errNotFound marks a request naming something that does not exist.
	errNotFound = errors.New("not found")
)

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", errBadRequest, msg)
}

// fail writes the response for err. Missing data is a normal outcome and is
// only logged at debug level.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		s.logger.DebugContext(r.Context(), "Bad request", "path", r.URL.Path, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errNotFound),
		errors.Is(err, engine.ErrNotFound),
		errors.Is(err, registry.ErrClosed),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		s.logger.DebugContext(r.Context(), "Not found", "path", r.URL.Path, "error", err)
		http.NotFound(w, r)
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// parseID parses a dictionary id.
func parseID(v string) (uint32, error) {
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, badRequest("invalid dictionary id")
	}
	return uint32(id), nil
}

// cookieID returns the dictionary id carried by the request cookie.
func cookieID(r *http.Request) (uint32, error) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return 0, fmt.Errorf("%w: no dictionary cookie", errNotFound)
	}
	return parseID(c.Value)
}

func setCookie(w http.ResponseWriter, id uint32) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    strconv.FormatUint(uint64(id), 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
