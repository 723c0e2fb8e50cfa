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

// Package server serves dictionary content over HTTP.
//
// A client first requests an entry naming the dictionary explicitly. The
// response sets the dict_id cookie, which later resource and static file
// requests issued by the rendered page use to find the dictionary again.
// The cookie is never trusted: every request checks it against the loaded
// dictionaries or the catalog.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/youginil/beluga/internal/catalog"
	"github.com/youginil/beluga/internal/registry"
)

const (
	entryPath    = "/@entry"
	resourcePath = "/@resource"
	searchPath   = "/@search"

	cookieName = "dict_id"

	shutdownTimeout = 5 * time.Second
)

// Config holds the server settings.
type Config struct {
	// Addr is the first address tried by ListenAndServe.
	Addr string

	// PortAttempts is the number of consecutive ports tried starting at the
	// port of Addr.
	PortAttempts int

	// ResourceDir holds entry.js. The built in script is used when empty.
	ResourceDir string

	// LookupTimeout bounds every dictionary call.
	LookupTimeout time.Duration

	// AssetCacheEntries and AssetCacheBytes bound the static file cache.
	AssetCacheEntries int
	AssetCacheBytes   int64

	// MaxAssetSize is the largest static file that is cached.
	MaxAssetSize int64

	// PrefixLimit and PhraseLimit bound search suggestions.
	PrefixLimit int
	PhraseLimit int
}

// DefaultConfig returns the default settings.
func DefaultConfig() *Config {
	return &Config{
		Addr:              "127.0.0.1:19000",
		PortAttempts:      100,
		LookupTimeout:     5 * time.Second,
		AssetCacheEntries: 256,
		AssetCacheBytes:   64 << 20,
		MaxAssetSize:      1 << 20,
		PrefixLimit:       5,
		PhraseLimit:       10,
	}
}

func (c *Config) withDefaults() Config {
	d := DefaultConfig()
	if c == nil {
		return *d
	}
	out := *c
	if out.Addr == "" {
		out.Addr = d.Addr
	}
	if out.PortAttempts <= 0 {
		out.PortAttempts = 1
	}
	if out.LookupTimeout <= 0 {
		out.LookupTimeout = d.LookupTimeout
	}
	if out.AssetCacheEntries <= 0 {
		out.AssetCacheEntries = d.AssetCacheEntries
	}
	if out.AssetCacheBytes <= 0 {
		out.AssetCacheBytes = d.AssetCacheBytes
	}
	if out.MaxAssetSize <= 0 {
		out.MaxAssetSize = d.MaxAssetSize
	}
	return out
}

// Options configures a Server.
type Options struct {
	// Registry resolves dictionary ids for entries, resources and searches.
	Registry *registry.Registry

	// Catalog resolves dictionary ids for static files.
	Catalog *catalog.Catalog

	// Config defaults to DefaultConfig.
	Config *Config

	// Logger defaults to a logger discarding everything.
	Logger *slog.Logger
}

// Server is the content server.
type Server struct {
	reg     *registry.Registry
	catalog *catalog.Catalog
	cfg     Config
	logger  *slog.Logger

	assets    *assetCache
	bootstrap *bootstrap
	handler   http.Handler

	addr atomic.Pointer[string]
}

// New returns a Server.
func New(opts *Options) *Server {
	s := &Server{
		reg:     opts.Registry,
		catalog: opts.Catalog,
		cfg:     opts.Config.withDefaults(),
		logger:  opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.assets = newAssetCache(s.cfg.AssetCacheEntries, s.cfg.AssetCacheBytes, s.cfg.MaxAssetSize)
	s.bootstrap = newBootstrap(s.cfg.ResourceDir, s.logger)
	s.handler = chain(http.HandlerFunc(s.route),
		requestID(),
		logRequests(s.logger),
		recoverPanic(s.logger),
	)
	return s
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// route dispatches on the raw request path. http.ServeMux is not used as it
// redirects unclean paths instead of letting the static handler reject them.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case entryPath:
		s.handleEntry(w, r)
	case resourcePath:
		s.handleResource(w, r)
	case searchPath:
		s.handleSearch(w, r)
	default:
		s.handleStatic(w, r)
	}
}

// Addr returns the address the server is listening on, or the empty string
// before ListenAndServe has bound it.
func (s *Server) Addr() string {
	if a := s.addr.Load(); a != nil {
		return *a
	}
	return ""
}

// ListenAndServe listens on the configured address, trying the following
// ports if it is taken, and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := listen(ctx, s.cfg.Addr, s.cfg.PortAttempts)
	if err != nil {
		return err
	}
	addr := ln.Addr().String()
	s.addr.Store(&addr)
	s.logger.Info("Listening", "addr", addr)

	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	//nolint:contextcheck // the parent context is already done.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// listen binds the first free port among attempts consecutive ports
// starting at the port of addr. Port 0 is tried once.
func listen(ctx context.Context, addr string, attempts int) (net.Listener, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("parsing address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parsing port %q: %w", portStr, err)
	}
	if port == 0 || attempts < 1 {
		attempts = 1
	}

	var lc net.ListenConfig
	var errs []error
	for i := range attempts {
		p := port + i
		if p > 65535 {
			break
		}
		ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err == nil {
			return ln, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no available port from %s: %w", addr, errors.Join(errs...))
}
