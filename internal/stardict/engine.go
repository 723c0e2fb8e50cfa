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

package stardict

import (
	"context"

	"github.com/youginil/beluga/internal/engine"
)

// Engine opens StarDict packages. It implements [engine.Engine].
type Engine struct {
	opts *Options
}

// NewEngine returns an Engine opening dictionaries with opts. nil opts uses
// DefaultOptions.
func NewEngine(opts *Options) *Engine {
	return &Engine{opts: opts}
}

// Open opens the dictionary whose .ifo file is at path. The dictionary
// reserves one cache slot per index entry and one per resource file starting
// at start.
func (e *Engine) Open(ctx context.Context, path string, start uint64) (engine.Handle, uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, start, err
	}
	s, err := Open(path, e.opts)
	if err != nil {
		return nil, start, err
	}
	return s, start + s.Slots(), nil
}

var (
	_ engine.Engine = (*Engine)(nil)
	_ engine.Handle = (*Stardict)(nil)
)
