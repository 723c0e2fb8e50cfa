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


package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	got, err := LoadFrom(map[string]string{
		"BELUGA_DICT_DIR":       "/srv/dicts",
		"BELUGA_CATALOG":        "/srv/beluga.db",
		"BELUGA_ADDR":           "0.0.0.0:8080",
		"BELUGA_LOOKUP_TIMEOUT": "250ms",
		"BELUGA_LOG_FORMAT":     "json",
		"OTHER_DICT_DIR":        "/ignored",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	want := &Config{
		DictDir:           "/srv/dicts",
		CatalogPath:       "/srv/beluga.db",
		CacheSizeMB:       100,
		Addr:              "0.0.0.0:8080",
		PortAttempts:      100,
		LookupTimeout:     250 * time.Millisecond,
		AssetCacheEntries: 256,
		AssetCacheBytes:   64 << 20,
		PrefixLimit:       5,
		PhraseLimit:       10,
		LogLevel:          "info",
		LogFormat:         "json",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadFrom (-want, +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFrom_defaultPaths(t *testing.T) {
	t.Parallel()

	got, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if !strings.HasSuffix(got.DictDir, "dicts") {
		t.Errorf("DictDir: got %q", got.DictDir)
	}
	if !strings.HasSuffix(got.CatalogPath, "settings.json") {
		t.Errorf("CatalogPath: got %q", got.CatalogPath)
	}
	if diff := cmp.Diff(int64(100<<20), got.CacheBytes()); diff != "" {
		t.Errorf("CacheBytes (-want, +got):\n%s", diff)
	}
}

func TestLoadFrom_errors(t *testing.T) {
	t.Parallel()

	_, err := LoadFrom(map[string]string{"BELUGA_CACHE_SIZE_MB": "lots"})
	if err == nil {
		t.Fatal("LoadFrom: expected error")
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "cache size", modify: func(c *Config) { c.CacheSizeMB = 0 }},
		{name: "address", modify: func(c *Config) { c.Addr = "localhost" }},
		{name: "port attempts", modify: func(c *Config) { c.PortAttempts = -1 }},
		{name: "lookup timeout", modify: func(c *Config) { c.LookupTimeout = 0 }},
		{name: "log level", modify: func(c *Config) { c.LogLevel = "loud" }},
		{name: "log format", modify: func(c *Config) { c.LogFormat = "xml" }},
		{name: "dict dir", modify: func(c *Config) { c.DictDir = "" }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c, err := LoadFrom(map[string]string{})
			if err != nil {
				t.Fatalf("LoadFrom: %v", err)
			}
			test.modify(c)
			if err := c.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate: got %v, want %v", err, ErrInvalid)
			}
		})
	}
}

func TestConfig_Server(t *testing.T) {
	t.Parallel()

	c, err := LoadFrom(map[string]string{
		"BELUGA_RESOURCE_DIR":  "/usr/share/beluga",
		"BELUGA_PREFIX_LIMIT":  "3",
		"BELUGA_PORT_ATTEMPTS": "7",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	got := c.Server()
	if diff := cmp.Diff("/usr/share/beluga", got.ResourceDir); diff != "" {
		t.Errorf("ResourceDir (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, got.PrefixLimit); diff != "" {
		t.Errorf("PrefixLimit (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff(7, got.PortAttempts); diff != "" {
		t.Errorf("PortAttempts (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff(int64(1<<20), got.MaxAssetSize); diff != "" {
		t.Errorf("MaxAssetSize (-want, +got):\n%s", diff)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level  string
		format string
		want   string
	}{
		{level: "info", format: "text", want: "level=INFO msg=shown"},
		{level: "warn", format: "text", want: ""},
		{level: "debug", format: "json", want: `"msg":"shown"`},
	}

	for _, test := range tests {
		t.Run(test.level+"/"+test.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			l, err := NewLogger(test.level, test.format, &buf)
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			l.Info("shown")
			if test.want == "" {
				if buf.Len() != 0 {
					t.Errorf("unexpected output %q", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), test.want) {
				t.Errorf("output %q does not contain %q", buf.String(), test.want)
			}
		})
	}

	if _, err := NewLogger("info", "xml", &bytes.Buffer{}); err == nil {
		t.Error("NewLogger: expected error for unknown format")
	}
}
