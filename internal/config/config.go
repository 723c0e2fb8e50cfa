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

// Package config loads beluga settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/youginil/beluga/internal/server"
)

// Prefix is the prefix of every environment variable read by Load.
const Prefix = "BELUGA_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the beluga settings.
type Config struct {
	// DictDir holds one subdirectory per dictionary package.
	DictDir string `env:"DICT_DIR"`

	// CatalogPath is the settings file. A .db, .sqlite or .sqlite3
	// extension selects the SQLite store.
	CatalogPath string `env:"CATALOG"`

	CacheSizeMB int `env:"CACHE_SIZE_MB" envDefault:"100"`

	Addr          string        `env:"ADDR" envDefault:"127.0.0.1:19000"`
	PortAttempts  int           `env:"PORT_ATTEMPTS" envDefault:"100"`
	ResourceDir   string        `env:"RESOURCE_DIR"`
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"5s"`

	AssetCacheEntries int   `env:"ASSET_CACHE_ENTRIES" envDefault:"256"`
	AssetCacheBytes   int64 `env:"ASSET_CACHE_BYTES" envDefault:"67108864"`

	PrefixLimit int `env:"PREFIX_LIMIT" envDefault:"5"`
	PhraseLimit int `env:"PHRASE_LIMIT" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment. Unset paths
// get the per-OS defaults.
func Load() (*Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom is Load reading variables from environ instead of the process
// environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	var c Config
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if c.DictDir == "" {
		c.DictDir = filepath.Join(dataDir(), "beluga", "dicts")
	}
	if c.CatalogPath == "" {
		c.CatalogPath = filepath.Join(configDir(), "beluga", "settings.json")
	}
	return &c, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.DictDir == "" {
		errs = append(errs, errors.New("dictionary directory is empty"))
	}
	if c.CatalogPath == "" {
		errs = append(errs, errors.New("catalog path is empty"))
	}
	if c.CacheSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("cache size %d must be positive", c.CacheSizeMB))
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		errs = append(errs, fmt.Errorf("address %q: %w", c.Addr, err))
	}
	if c.PortAttempts <= 0 {
		errs = append(errs, fmt.Errorf("port attempts %d must be positive", c.PortAttempts))
	}
	if c.LookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lookup timeout %s must be positive", c.LookupTimeout))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// CacheBytes returns the shared cache capacity in bytes.
func (c *Config) CacheBytes() int64 {
	return int64(c.CacheSizeMB) << 20
}

// Server returns the HTTP server settings.
func (c *Config) Server() *server.Config {
	s := server.DefaultConfig()
	s.Addr = c.Addr
	s.PortAttempts = c.PortAttempts
	s.ResourceDir = c.ResourceDir
	s.LookupTimeout = c.LookupTimeout
	s.AssetCacheEntries = c.AssetCacheEntries
	s.AssetCacheBytes = c.AssetCacheBytes
	s.PrefixLimit = c.PrefixLimit
	s.PhraseLimit = c.PhraseLimit
	return s
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// NewLogger returns a logger writing to w at level in format, "text" or
// "json".
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	l, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: l}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
