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
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const bootstrapFile = "entry.js"

//go:embed static/entry.js
var defaultBootstrap string

// bootstrap is the script included in every entry page. It is read on
// first use and kept for the life of the process.
type bootstrap struct {
	dir    string
	logger *slog.Logger

	group  singleflight.Group
	loaded atomic.Pointer[string]
}

func newBootstrap(dir string, logger *slog.Logger) *bootstrap {
	return &bootstrap{dir: dir, logger: logger}
}

// script returns the bootstrap script. Concurrent first calls share one
// read. A failed read is served as an empty script and retried later.
func (b *bootstrap) script(ctx context.Context) string {
	if s := b.loaded.Load(); s != nil {
		return *s
	}
	v, _, _ := b.group.Do(bootstrapFile, func() (any, error) {
		if s := b.loaded.Load(); s != nil {
			return *s, nil
		}
		s := defaultBootstrap
		if b.dir != "" {
			path := filepath.Join(b.dir, bootstrapFile)
			data, err := os.ReadFile(path)
			if err != nil {
				b.logger.WarnContext(ctx, "Failed to read bootstrap script", "path", path, "error", err)
				return "", nil
			}
			s = string(data)
		}
		b.loaded.Store(&s)
		return s, nil
	})
	return v.(string)
}
